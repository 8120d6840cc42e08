package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"revline/models"

	"go.uber.org/zap"
)

// State is the lifecycle state of a call session.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
	StateEnded      State = "ended"
	StateError      State = "error"
)

// Metrics accumulates per-session counters emitted with the terminal record.
type Metrics struct {
	StartTime     time.Time
	EndTime       time.Time
	AudioBytesIn  int64
	AudioBytesOut int64
	ToolCalls     []models.ToolCall
	Transcripts   []models.TranscriptEntry
	Errors        []string
}

// RecordSink receives the terminal call record on session teardown.
type RecordSink interface {
	SaveCallRecord(ctx context.Context, record models.CallRecord) error
}

// functionIntents maps tool names to the caller intent they imply.
var functionIntents = map[string]models.CallIntent{
	"lookup_work_order":     models.IntentCheckStatus,
	"get_work_order_status": models.IntentCheckStatus,
	"get_customer_vehicles": models.IntentCheckStatus,
	"get_business_hours":    models.IntentGetHours,
	"get_location":          models.IntentGetLocation,
	"list_services":         models.IntentGetServices,
	"check_availability":    models.IntentBookVisit,
	"propose_appointment":   models.IntentBookVisit,
	"confirm_appointment":   models.IntentBookVisit,
	"transfer_to_human":     models.IntentTransferHuman,
}

// SessionDeps are the collaborators a session coordinates.
type SessionDeps struct {
	Transport Transport
	Tools     ToolExecutor
	Limiter   *Limiter
	Registry  *Registry
	Sink      RecordSink
	Logger    *zap.Logger

	// OnAudioOut streams model audio toward the caller.
	OnAudioOut func(chunk []byte)
	// OnStateChange is notified exactly once per real state transition.
	OnStateChange func(state State)
	// OnBargeIn clears any caller-side audio buffer for instant interruption.
	OnBargeIn func()
	// Transfer moves the live call to a human; nil disables transfers.
	Transfer TransferFunc
}

// SessionParams identify and configure one call.
type SessionParams struct {
	CallSID    string
	ShopID     string
	ShopName   string
	FromNumber string
	ToNumber   string

	SystemPrompt      string
	Voice             string
	InputAudioFormat  string
	OutputAudioFormat string
	TransferNumber    string
	// GreetFirst makes the model greet the caller immediately on connect.
	GreetFirst bool
}

// Session drives one call from connect through conversation to teardown.
// It owns cleanup on every exit path: whatever happens, Stop releases the
// limiter slot and removes the registry entry so other callers' admission
// is never blocked by a dead call.
type Session struct {
	CallSID    string
	ShopID     string
	ShopName   string
	FromNumber string
	ToNumber   string

	params  SessionParams
	deps    SessionDeps
	booking *BookingProposal
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	metrics Metrics

	cancelEvents context.CancelFunc
	eventsDone   chan struct{}
	stopOnce     sync.Once

	shouldTransfer bool
	transferReason string
	transferred    bool
	intent         models.CallIntent
}

// NewSession constructs a session in IDLE state. The caller must already
// hold a limiter slot for the shop; the session releases it on Stop.
func NewSession(params SessionParams, deps SessionDeps) *Session {
	return &Session{
		CallSID:    params.CallSID,
		ShopID:     params.ShopID,
		ShopName:   params.ShopName,
		FromNumber: params.FromNumber,
		ToNumber:   params.ToNumber,
		params:     params,
		deps:       deps,
		booking:    NewBookingProposal(),
		logger: deps.Logger.With(
			zap.String("callSid", params.CallSID),
			zap.String("shopId", params.ShopID),
		),
		state:  StateIdle,
		intent: models.IntentUnknown,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Booking exposes the session-scoped appointment proposal to the tool layer.
func (s *Session) Booking() *BookingProposal {
	return s.booking
}

// MetricsSnapshot returns a copy of the accumulated metrics.
func (s *Session) MetricsSnapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// setState transitions the state machine and notifies the observer. A
// transition to the current state is a no-op and notifies nothing.
func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	if prev == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Info("session state change",
		zap.String("from", string(prev)), zap.String("to", string(next)))
	if s.deps.OnStateChange != nil {
		s.deps.OnStateChange(next)
	}
}

func (s *Session) recordError(msg string) {
	s.mu.Lock()
	s.metrics.Errors = append(s.metrics.Errors, msg)
	s.mu.Unlock()
}

// Start performs the transport handshake and configuration, then launches
// the event loop. On failure the session moves to ERROR and the error is
// returned; the caller is expected to Stop the session to reclaim its slot.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	s.metrics.StartTime = time.Now()
	s.mu.Unlock()

	s.setState(StateConnecting)

	if err := s.deps.Transport.Connect(ctx); err != nil {
		s.recordError(err.Error())
		s.setState(StateError)
		return fmt.Errorf("connect realtime transport: %w", err)
	}

	cfg := TransportConfig{
		SystemPrompt:      s.params.SystemPrompt,
		Tools:             s.deps.Tools.Definitions(),
		Voice:             s.params.Voice,
		InputAudioFormat:  s.params.InputAudioFormat,
		OutputAudioFormat: s.params.OutputAudioFormat,
	}
	if err := s.deps.Transport.Configure(ctx, cfg); err != nil {
		s.recordError(err.Error())
		s.setState(StateError)
		return fmt.Errorf("configure realtime transport: %w", err)
	}

	evCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	// Published under the lock: Stop may run concurrently with Start (e.g.
	// shutdown draining the registry while a stream is still connecting).
	s.mu.Lock()
	s.cancelEvents = cancel
	s.eventsDone = done
	s.mu.Unlock()
	go s.eventLoop(evCtx, done)

	s.setState(StateListening)

	if s.params.GreetFirst {
		if err := s.deps.Transport.SendText("The caller just connected. Greet them warmly."); err != nil {
			s.logger.Warn("failed to trigger greeting", zap.Error(err))
		}
	}

	s.logger.Info("session started", zap.String("shopName", s.ShopName))
	return nil
}

// ForwardAudio relays caller audio to the transport. Never returns an
// error: audio before the handshake completes is dropped with a warning.
func (s *Session) ForwardAudio(chunk []byte) {
	if !s.deps.Transport.Connected() {
		s.logger.Warn("dropping audio: transport not connected")
		return
	}
	s.mu.Lock()
	s.metrics.AudioBytesIn += int64(len(chunk))
	s.mu.Unlock()
	if err := s.deps.Transport.SendAudio(chunk); err != nil {
		s.logger.Warn("failed to forward audio", zap.Error(err))
	}
}

// SendText injects a text message from the caller side (used by the text
// testing endpoint and the greeting trigger).
func (s *Session) SendText(text string) {
	if !s.deps.Transport.Connected() {
		s.logger.Warn("dropping text: transport not connected")
		return
	}
	s.mu.Lock()
	s.metrics.Transcripts = append(s.metrics.Transcripts, models.TranscriptEntry{Role: "user", Text: text})
	s.mu.Unlock()
	if err := s.deps.Transport.SendText(text); err != nil {
		s.logger.Warn("failed to send text", zap.Error(err))
	}
}

func (s *Session) eventLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.deps.Transport.Events():
			if !ok {
				// Transport stream ended. If we are not already tearing
				// down, this is a mid-session transport failure.
				select {
				case <-ctx.Done():
					return
				default:
				}
				s.logger.Error("transport stream closed unexpectedly")
				s.recordError("transport stream closed unexpectedly")
				s.setState(StateError)
				go s.Stop()
				return
			}
			s.handleEvent(ctx, event)
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, event Event) {
	switch event.Type {
	case EventSessionCreated:
		s.logger.Debug("transport session created")

	case EventSpeechStarted:
		// Barge-in: the caller started talking over the model. Cancel the
		// outgoing response before listening again.
		if s.State() == StateSpeaking {
			if err := s.deps.Transport.CancelResponse(); err != nil {
				s.logger.Warn("failed to cancel response on barge-in", zap.Error(err))
			}
			if s.deps.OnBargeIn != nil {
				s.deps.OnBargeIn()
			}
		}
		s.setState(StateListening)

	case EventSpeechStopped:
		s.setState(StateProcessing)

	case EventAudioDelta:
		s.setState(StateSpeaking)
		s.mu.Lock()
		s.metrics.AudioBytesOut += int64(len(event.Audio))
		s.mu.Unlock()
		if s.deps.OnAudioOut != nil {
			s.deps.OnAudioOut(event.Audio)
		}

	case EventAudioDone:
		s.logger.Debug("audio output complete")

	case EventTranscriptDelta:
		// Streaming transcript fragments are not tracked.

	case EventTranscriptDone:
		if event.Transcript == "" {
			return
		}
		s.mu.Lock()
		s.metrics.Transcripts = append(s.metrics.Transcripts,
			models.TranscriptEntry{Role: "assistant", Text: event.Transcript})
		s.mu.Unlock()

	case EventFunctionCall:
		s.HandleFunctionCall(ctx, event.ToolCallID, event.ToolName, event.ToolArgs)

	case EventResponseDone:
		if event.ResponseStatus == "completed" && s.pendingTransfer() {
			s.executeTransfer(ctx)
		}
		s.setState(StateListening)

	case EventError:
		s.logger.Error("transport error event", zap.String("message", event.Message))
		s.recordError(event.Message)
	}
}

func (s *Session) pendingTransfer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldTransfer && !s.transferred
}

// HandleFunctionCall executes one tool call requested by the model and
// always sends a result back to the transport. Executor errors and panics
// become structured {success:false} results; a tool failure is never fatal
// to the session.
func (s *Session) HandleFunctionCall(ctx context.Context, toolCallID, name, rawArgs string) {
	s.logger.Info("function call", zap.String("function", name), zap.String("toolCallId", toolCallID))

	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		s.logger.Error("failed to parse function arguments", zap.String("arguments", rawArgs))
		args = map[string]any{}
	}

	if intent, ok := functionIntents[name]; ok {
		s.mu.Lock()
		s.intent = intent
		s.mu.Unlock()
	}
	if name == "transfer_to_human" {
		reason, _ := args["reason"].(string)
		if reason == "" {
			reason = "Customer requested transfer"
		}
		s.mu.Lock()
		s.shouldTransfer = true
		s.transferReason = reason
		s.mu.Unlock()
	}

	result, succeeded := s.executeTool(ctx, name, args)

	s.mu.Lock()
	s.metrics.ToolCalls = append(s.metrics.ToolCalls, models.ToolCall{
		CallID:    toolCallID,
		Function:  name,
		Arguments: args,
		Result:    result,
		Succeeded: succeeded,
	})
	if !succeeded {
		if msg, ok := result["error"].(string); ok {
			s.metrics.Errors = append(s.metrics.Errors, fmt.Sprintf("tool %s: %s", name, msg))
		}
	}
	s.mu.Unlock()

	if err := s.deps.Transport.SendToolResult(toolCallID, result); err != nil {
		s.logger.Error("failed to send tool result", zap.Error(err))
	}
}

func (s *Session) executeTool(ctx context.Context, name string, args map[string]any) (result map[string]any, succeeded bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool executor panicked",
				zap.String("function", name), zap.Any("panic", r))
			result = map[string]any{"success": false, "error": fmt.Sprintf("tool %s panicked: %v", name, r)}
			succeeded = false
		}
	}()

	result, err := s.deps.Tools.Execute(ctx, name, args)
	if err != nil {
		s.logger.Error("tool execution failed", zap.String("function", name), zap.Error(err))
		return map[string]any{"success": false, "error": err.Error()}, false
	}
	if result == nil {
		result = map[string]any{"success": true}
	}
	if ok, present := result["success"].(bool); present && !ok {
		return result, false
	}
	return result, true
}

func (s *Session) executeTransfer(ctx context.Context) {
	s.mu.Lock()
	reason := s.transferReason
	s.mu.Unlock()

	if s.deps.Transfer == nil {
		s.logger.Error("transfer requested but no transfer hook configured")
		return
	}
	if err := s.deps.Transfer(ctx, s.CallSID, reason); err != nil {
		s.logger.Error("call transfer failed", zap.Error(err))
		s.recordError(fmt.Sprintf("transfer failed: %v", err))
		return
	}
	s.mu.Lock()
	s.transferred = true
	s.mu.Unlock()
	s.logger.Info("call transferred", zap.String("reason", reason))
}

// Outcome classifies how the call ended, in priority order:
// TRANSFERRED, FAILED, RESOLVED, ABANDONED.
func (s *Session) Outcome() models.CallOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomeLocked()
}

func (s *Session) outcomeLocked() models.CallOutcome {
	switch {
	case s.transferred:
		return models.OutcomeTransferred
	case s.state == StateError:
		return models.OutcomeFailed
	default:
		for _, call := range s.metrics.ToolCalls {
			if call.Succeeded {
				return models.OutcomeResolved
			}
		}
		return models.OutcomeAbandoned
	}
}

// Stop tears the session down. Safe to call multiple times and from any
// state; only the first call performs the side effects. Every step runs even
// if an earlier one fails: a skipped limiter release would permanently leak
// a concurrency slot, so failures are logged, never propagated.
func (s *Session) Stop() {
	s.stopOnce.Do(s.teardown)
}

// guard runs one teardown step, converting failures and panics into logs.
func (s *Session) guard(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("teardown step panicked",
				zap.String("step", step), zap.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		s.logger.Error("teardown step failed", zap.String("step", step), zap.Error(err))
	}
}

func (s *Session) teardown() {
	s.logger.Info("stopping session")

	s.guard("cancel event loop", func() error {
		s.mu.Lock()
		cancel, done := s.cancelEvents, s.eventsDone
		s.mu.Unlock()
		if cancel == nil {
			return nil
		}
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			s.logger.Warn("event loop did not drain in time")
		}
		return nil
	})

	s.guard("clear booking state", func() error {
		s.booking.Clear()
		return nil
	})

	s.guard("close transport", func() error {
		return s.deps.Transport.Close()
	})

	// ERROR is terminal in its own right; only a clean stop lands on ENDED.
	if s.State() != StateError {
		s.setState(StateEnded)
	}

	s.guard("release limiter slot", func() error {
		if s.deps.Limiter != nil {
			s.deps.Limiter.Release(s.ShopID)
		}
		return nil
	})

	s.guard("unregister session", func() error {
		if s.deps.Registry != nil {
			s.deps.Registry.Unregister(s.CallSID)
		}
		return nil
	})

	s.mu.Lock()
	s.metrics.EndTime = time.Now()
	record := s.buildRecordLocked()
	audioIn, audioOut, toolCount := s.metrics.AudioBytesIn, s.metrics.AudioBytesOut, len(s.metrics.ToolCalls)
	s.mu.Unlock()

	s.guard("emit call record", func() error {
		if s.deps.Sink == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.deps.Sink.SaveCallRecord(ctx, record)
	})

	s.logger.Info("session ended",
		zap.Int("durationSeconds", record.DurationSeconds),
		zap.String("outcome", string(record.Outcome)),
		zap.Int64("audioBytesIn", audioIn),
		zap.Int64("audioBytesOut", audioOut),
		zap.Int("toolCalls", toolCount))
}

func (s *Session) buildRecordLocked() models.CallRecord {
	duration := 0
	if !s.metrics.StartTime.IsZero() {
		duration = int(s.metrics.EndTime.Sub(s.metrics.StartTime).Seconds())
	}

	return models.CallRecord{
		ShopID:          s.ShopID,
		CallSID:         s.CallSID,
		CallerNumber:    s.FromNumber,
		CalleeNumber:    s.ToNumber,
		DurationSeconds: duration,
		Intent:          s.intent,
		Outcome:         s.outcomeLocked(),
		TransferReason:  s.transferReason,
		AudioBytesIn:    s.metrics.AudioBytesIn,
		AudioBytesOut:   s.metrics.AudioBytesOut,
		ToolCalls:       s.metrics.ToolCalls,
		Transcripts:     s.metrics.Transcripts,
		Errors:          s.metrics.Errors,
		CreatedAt:       time.Now(),
	}
}
