package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"revline/services/voice"
)

// ErrNoCapacity is returned when a media stream starts for a call that no
// longer holds, and cannot acquire, a limiter slot.
var ErrNoCapacity = errors.New("telephony: no capacity for call")

// twilioMessage is the union of media-stream frames we read from Twilio.
type twilioMessage struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Start     struct {
		StreamSid        string            `json:"streamSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start"`
	Media struct {
		Payload string `json:"payload"`
	} `json:"media"`
	Mark struct {
		Name string `json:"name"`
	} `json:"mark"`
}

// Bridge carries one call's audio between a Twilio media stream and its
// session. It owns the session lifecycle for the stream: created on the
// start frame, stopped when the stream ends however it ends.
type Bridge struct {
	conn    *websocket.Conn
	manager *Manager
	logger  *zap.Logger

	writeMu   sync.Mutex
	streamSID string
	session   *voice.Session
}

// NewBridge wraps an accepted media-stream connection.
func NewBridge(conn *websocket.Conn, manager *Manager, logger *zap.Logger) *Bridge {
	return &Bridge{conn: conn, manager: manager, logger: logger}
}

func (b *Bridge) writeJSON(v any) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(v)
}

// sendAudio pushes model audio toward the caller.
func (b *Bridge) sendAudio(chunk []byte) {
	if b.streamSID == "" {
		return
	}
	err := b.writeJSON(map[string]any{
		"event":     "media",
		"streamSid": b.streamSID,
		"media":     map[string]string{"payload": base64.StdEncoding.EncodeToString(chunk)},
	})
	if err != nil {
		b.logger.Error("failed to send audio to caller", zap.Error(err))
	}
}

// clearBuffer drops Twilio's buffered playback so barge-in cuts the voice
// off immediately.
func (b *Bridge) clearBuffer() {
	if b.streamSID == "" {
		return
	}
	err := b.writeJSON(map[string]any{
		"event":     "clear",
		"streamSid": b.streamSID,
	})
	if err != nil {
		b.logger.Error("failed to clear caller audio buffer", zap.Error(err))
	}
}

func (b *Bridge) handleStart(ctx context.Context, msg *twilioMessage) error {
	if b.session != nil {
		return nil
	}
	b.streamSID = msg.Start.StreamSid

	params := msg.Start.CustomParameters
	callSID := params["callSid"]
	session, err := b.manager.NewCallSession(ctx,
		callSID, params["fromNumber"], params["toNumber"],
		b.sendAudio, b.clearBuffer)
	if err != nil {
		return err
	}
	b.session = session

	if err := session.Start(ctx); err != nil {
		// Start failures leave the session in ERROR; teardown still runs so
		// the slot comes back.
		b.logger.Error("session start failed", zap.String("callSid", callSID), zap.Error(err))
		return err
	}
	return nil
}

// Run pumps stream frames until the stream ends. It always leaves the
// session stopped.
func (b *Bridge) Run(ctx context.Context) error {
	defer func() {
		if b.session != nil {
			b.session.Stop()
		}
	}()

	for {
		_, payload, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Warn("media stream closed unexpectedly", zap.Error(err))
			}
			return nil
		}

		var msg twilioMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logger.Error("bad media stream frame", zap.Error(err))
			continue
		}

		switch msg.Event {
		case "connected":
			b.logger.Debug("media stream connected")
		case "start":
			if err := b.handleStart(ctx, &msg); err != nil {
				return err
			}
		case "media":
			if b.session == nil {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
			if err != nil {
				b.logger.Error("bad audio payload", zap.Error(err))
				continue
			}
			b.session.ForwardAudio(audio)
		case "stop":
			return nil
		case "mark":
			b.logger.Debug("media stream mark", zap.String("name", msg.Mark.Name))
		}
	}
}
