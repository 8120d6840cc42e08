package voice

import "context"

// EventType identifies an event arriving from the realtime transport.
type EventType string

const (
	EventSessionCreated  EventType = "session_created"
	EventSpeechStarted   EventType = "speech_started"
	EventSpeechStopped   EventType = "speech_stopped"
	EventAudioDelta      EventType = "audio_delta"
	EventAudioDone       EventType = "audio_done"
	EventTranscriptDelta EventType = "transcript_delta"
	EventTranscriptDone  EventType = "transcript_done"
	EventFunctionCall    EventType = "function_call"
	EventResponseDone    EventType = "response_done"
	EventError           EventType = "error"
)

// Event is one typed event from the transport's stream.
type Event struct {
	Type EventType

	// EventAudioDelta
	Audio []byte

	// EventTranscriptDelta / EventTranscriptDone
	Transcript string

	// EventFunctionCall
	ToolCallID string
	ToolName   string
	ToolArgs   string // raw JSON arguments

	// EventResponseDone: "completed" or "cancelled"
	ResponseStatus string

	// EventError
	Message string
}

// ToolDefinition describes one callable tool in the transport's schema.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// TransportConfig is applied after connecting, before the conversation.
type TransportConfig struct {
	SystemPrompt      string
	Tools             []ToolDefinition
	Voice             string
	InputAudioFormat  string
	OutputAudioFormat string
}

// Transport is a bidirectional realtime speech connection. The session
// lifecycle controller is polymorphic over transport variants: the OpenAI
// Realtime client implements this for production, test doubles for tests.
type Transport interface {
	Connect(ctx context.Context) error
	Configure(ctx context.Context, cfg TransportConfig) error
	SendAudio(chunk []byte) error
	SendText(text string) error
	SendToolResult(toolCallID string, result map[string]any) error
	CancelResponse() error
	// Events yields typed events until the connection closes; the channel
	// is closed when the underlying stream ends.
	Events() <-chan Event
	Connected() bool
	Close() error
}

// ToolExecutor runs tool calls requested by the model. Implementations are
// injected; the session guarantees each function-call event invokes the
// executor at most once and that some result always goes back to the
// transport, even when the executor fails or panics.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error)
	Definitions() []ToolDefinition
}

// TransferFunc moves a live call to a human operator.
type TransferFunc func(ctx context.Context, callSID, reason string) error
