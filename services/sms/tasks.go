package sms

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TypeCallSummary is the asynq task type for post-call summary texts.
const TypeCallSummary = "sms:call_summary"

// CallSummaryPayload identifies the finished call to summarize.
type CallSummaryPayload struct {
	ShopID  string `json:"shopId"`
	CallSID string `json:"callSid"`
}

// NewCallSummaryTask builds the queue task for one finished call.
func NewCallSummaryTask(shopID, callSID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CallSummaryPayload{ShopID: shopID, CallSID: callSID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCallSummary, payload), nil
}
