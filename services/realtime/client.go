package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"revline/services/voice"
)

const realtimeURL = "wss://api.openai.com/v1/realtime"

// ErrNotConnected is returned when sending before Connect or after the
// stream ended.
var ErrNotConnected = errors.New("realtime: not connected")

var _ voice.Transport = (*Client)(nil)

// Client is a WebSocket client for the OpenAI Realtime API. It implements
// voice.Transport: one client per call, speech in and speech out with
// server-side voice activity detection and native function calling.
type Client struct {
	apiKey string
	model  string
	logger *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	events    chan voice.Event
	closeOnce sync.Once
}

// NewClient creates a disconnected client for one call session.
func NewClient(apiKey, model string, logger *zap.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		logger: logger,
		events: make(chan voice.Event, 64),
	}
}

// Connect dials the Realtime API and starts the receive loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	url := fmt.Sprintf("%s?model=%s", realtimeURL, c.model)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("realtime: dial failed with status %s: %w", resp.Status, err)
		}
		return fmt.Errorf("realtime: dial failed: %w", err)
	}

	c.conn = conn
	c.connected = true
	go c.readLoop(conn)

	c.logger.Info("connected to realtime API", zap.String("model", c.model))
	return nil
}

// serverEvent is the union of fields we read from incoming messages.
type serverEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
	CallID     string `json:"call_id"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments"`
	Response   struct {
		Status string `json:"status"`
	} `json:"response"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.events)
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("realtime stream closed unexpectedly", zap.Error(err))
			}
			return
		}

		var raw serverEvent
		if err := json.Unmarshal(payload, &raw); err != nil {
			c.logger.Error("failed to parse realtime event", zap.Error(err))
			continue
		}

		event, ok := c.translate(raw)
		if !ok {
			continue
		}
		select {
		case c.events <- event:
		default:
			// The consumer stopped draining, likely mid-teardown. Dropping
			// keeps this loop free to notice the connection closing.
			c.logger.Warn("dropping realtime event, consumer not draining",
				zap.String("type", string(event.Type)))
		}
	}
}

// translate maps a wire event onto the transport's typed stream. Unhandled
// event types are dropped.
func (c *Client) translate(raw serverEvent) (voice.Event, bool) {
	switch raw.Type {
	case "session.created":
		return voice.Event{Type: voice.EventSessionCreated}, true
	case "input_audio_buffer.speech_started":
		return voice.Event{Type: voice.EventSpeechStarted}, true
	case "input_audio_buffer.speech_stopped":
		return voice.Event{Type: voice.EventSpeechStopped}, true
	case "response.audio.delta":
		audio, err := base64.StdEncoding.DecodeString(raw.Delta)
		if err != nil {
			c.logger.Error("invalid audio delta encoding", zap.Error(err))
			return voice.Event{}, false
		}
		return voice.Event{Type: voice.EventAudioDelta, Audio: audio}, true
	case "response.audio.done":
		return voice.Event{Type: voice.EventAudioDone}, true
	case "response.audio_transcript.delta":
		return voice.Event{Type: voice.EventTranscriptDelta, Transcript: raw.Delta}, true
	case "response.audio_transcript.done":
		return voice.Event{Type: voice.EventTranscriptDone, Transcript: raw.Transcript}, true
	case "response.function_call_arguments.done":
		return voice.Event{
			Type:       voice.EventFunctionCall,
			ToolCallID: raw.CallID,
			ToolName:   raw.Name,
			ToolArgs:   raw.Arguments,
		}, true
	case "response.done":
		return voice.Event{Type: voice.EventResponseDone, ResponseStatus: raw.Response.Status}, true
	case "error":
		return voice.Event{Type: voice.EventError, Message: raw.Error.Message}, true
	}
	return voice.Event{}, false
}

func (c *Client) send(event map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(event)
}

// Configure applies the session settings: instructions, voice, audio
// formats, server VAD turn detection, and the tool schema.
func (c *Client) Configure(ctx context.Context, cfg voice.TransportConfig) error {
	tools := make([]map[string]any, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		tools = append(tools, map[string]any{
			"type":        "function",
			"name":        tool.Name,
			"description": tool.Description,
			"parameters":  tool.Parameters,
		})
	}

	err := c.send(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"modalities":          []string{"text", "audio"},
			"instructions":        cfg.SystemPrompt,
			"voice":               cfg.Voice,
			"input_audio_format":  cfg.InputAudioFormat,
			"output_audio_format": cfg.OutputAudioFormat,
			"input_audio_transcription": map[string]any{
				"model": "whisper-1",
			},
			"turn_detection": map[string]any{
				"type":                "server_vad",
				"threshold":           0.5,
				"prefix_padding_ms":   300,
				"silence_duration_ms": 500,
			},
			"tools":       tools,
			"tool_choice": "auto",
		},
	})
	if err != nil {
		return err
	}
	c.logger.Info("realtime session configured", zap.Int("tools", len(tools)))
	return nil
}

// SendAudio streams one chunk of caller audio into the input buffer.
func (c *Client) SendAudio(chunk []byte) error {
	return c.send(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(chunk),
	})
}

// SendText injects a user text message and requests a spoken response.
func (c *Client) SendText(text string) error {
	err := c.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
	if err != nil {
		return err
	}
	return c.send(map[string]any{"type": "response.create"})
}

// SendToolResult returns a function call's output to the conversation and
// asks the model to continue.
func (c *Client) SendToolResult(toolCallID string, result map[string]any) error {
	output, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("realtime: encode tool result: %w", err)
	}
	err = c.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": toolCallID,
			"output":  string(output),
		},
	})
	if err != nil {
		return err
	}
	return c.send(map[string]any{"type": "response.create"})
}

// CancelResponse aborts the in-flight model response, used for barge-in.
func (c *Client) CancelResponse() error {
	return c.send(map[string]any{"type": "response.cancel"})
}

// Events yields the typed event stream. The channel closes when the
// underlying connection ends.
func (c *Client) Events() <-chan voice.Event { return c.events }

// Connected reports whether the stream is live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close shuts the WebSocket down. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.connected = false
		c.mu.Unlock()
		if conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		err = conn.Close()
		c.logger.Info("realtime connection closed")
	})
	return err
}
