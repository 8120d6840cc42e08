package telephony

import (
	"fmt"

	"github.com/twilio/twilio-go/twiml"
)

const sayVoice = "Polly.Joanna"

// QuotaExceededTwiML politely turns a caller away when the shop's monthly
// quota is used up.
func QuotaExceededTwiML(shopName string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{
			Message: fmt.Sprintf("Thank you for calling %s. We're experiencing high call volume and cannot take your call right now. Please try again later or visit our website for more information. Goodbye.", shopName),
			Voice:   sayVoice,
		},
		&twiml.VoiceHangup{},
	})
}

// BusyTwiML turns a caller away when no capacity is available and the shop
// does not queue.
func BusyTwiML(shopName string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{
			Message: fmt.Sprintf("Thank you for calling %s. All of our lines are busy right now. Please call back in a few minutes. Goodbye.", shopName),
			Voice:   sayVoice,
		},
		&twiml.VoiceHangup{},
	})
}

// HoldTwiML parks a queued caller: announce their place in line, pause, and
// redirect back to the wait endpoint to re-check.
func HoldTwiML(shopName string, position int, waitURL string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{
			Message: fmt.Sprintf("Thank you for calling %s. All of our lines are busy. You are number %d in line. Please hold.", shopName, position),
			Voice:   sayVoice,
		},
		&twiml.VoicePause{Length: "15"},
		&twiml.VoiceRedirect{Url: waitURL, Method: "POST"},
	})
}

// HoldAgainTwiML keeps a waiting caller parked on a later wait-loop pass.
func HoldAgainTwiML(position int, waitURL string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{
			Message: fmt.Sprintf("You are number %d in line. Thank you for holding.", position),
			Voice:   sayVoice,
		},
		&twiml.VoicePause{Length: "15"},
		&twiml.VoiceRedirect{Url: waitURL, Method: "POST"},
	})
}

// WaitTimeoutTwiML ends a call whose queue wait expired.
func WaitTimeoutTwiML(shopName string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{
			Message: fmt.Sprintf("We're sorry, %s is still busy. Please call back later. Goodbye.", shopName),
			Voice:   sayVoice,
		},
		&twiml.VoiceHangup{},
	})
}

// StreamTwiML opens the bidirectional media stream that carries the call's
// audio to the receptionist.
func StreamTwiML(wsURL, callSID, fromNumber, toNumber string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceConnect{
			InnerElements: []twiml.Element{
				&twiml.VoiceStream{
					Url: wsURL,
					InnerElements: []twiml.Element{
						&twiml.VoiceParameter{Name: "callSid", Value: callSID},
						&twiml.VoiceParameter{Name: "fromNumber", Value: fromNumber},
						&twiml.VoiceParameter{Name: "toNumber", Value: toNumber},
					},
				},
			},
		},
	})
}

// TransferTwiML hands the caller to a human operator.
func TransferTwiML(transferNumber string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: "Transferring you now.", Voice: sayVoice},
		&twiml.VoiceDial{Number: transferNumber},
	})
}
