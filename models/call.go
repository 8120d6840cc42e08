package models

import "time"

// CallOutcome classifies how a call ended.
type CallOutcome string

const (
	OutcomeResolved    CallOutcome = "resolved"
	OutcomeTransferred CallOutcome = "transferred"
	OutcomeAbandoned   CallOutcome = "abandoned"
	OutcomeFailed      CallOutcome = "failed"
)

// CallIntent is the caller's detected reason for calling, derived from
// which tools the conversation used.
type CallIntent string

const (
	IntentCheckStatus   CallIntent = "check_status"
	IntentGetHours      CallIntent = "get_hours"
	IntentGetLocation   CallIntent = "get_location"
	IntentGetServices   CallIntent = "get_services"
	IntentBookVisit     CallIntent = "book_visit"
	IntentTransferHuman CallIntent = "transfer_human"
	IntentUnknown       CallIntent = "unknown"
)

// ToolCall records one executed tool invocation during a call.
type ToolCall struct {
	CallID    string         `bson:"callId" json:"callId"`
	Function  string         `bson:"function" json:"function"`
	Arguments map[string]any `bson:"arguments,omitempty" json:"arguments,omitempty"`
	Result    map[string]any `bson:"result,omitempty" json:"result,omitempty"`
	Succeeded bool           `bson:"succeeded" json:"succeeded"`
}

// TranscriptEntry is one line of the conversation transcript.
type TranscriptEntry struct {
	Role string `bson:"role" json:"role"`
	Text string `bson:"text" json:"text"`
}

// CallRecord is the terminal record emitted when a call session ends.
type CallRecord struct {
	ID              string            `bson:"id" json:"id"`
	ShopID          string            `bson:"shopId" json:"shopId"`
	CallSID         string            `bson:"callSid" json:"callSid"`
	CallerNumber    string            `bson:"callerNumber" json:"callerNumber"`
	CalleeNumber    string            `bson:"calleeNumber" json:"calleeNumber"`
	DurationSeconds int               `bson:"durationSeconds" json:"durationSeconds"`
	Intent          CallIntent        `bson:"intent" json:"intent"`
	Outcome         CallOutcome       `bson:"outcome" json:"outcome"`
	TransferReason  string            `bson:"transferReason,omitempty" json:"transferReason,omitempty"`
	AudioBytesIn    int64             `bson:"audioBytesIn" json:"audioBytesIn"`
	AudioBytesOut   int64             `bson:"audioBytesOut" json:"audioBytesOut"`
	ToolCalls       []ToolCall        `bson:"toolCalls,omitempty" json:"toolCalls,omitempty"`
	Transcripts     []TranscriptEntry `bson:"transcripts,omitempty" json:"transcripts,omitempty"`
	Errors          []string          `bson:"errors,omitempty" json:"errors,omitempty"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
}
