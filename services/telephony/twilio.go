package telephony

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// TwilioController drives in-progress calls over the Twilio REST API:
// redirecting promoted callers into the stream, transferring to humans, and
// hanging up expired waits.
type TwilioController struct {
	client *twilio.RestClient
	logger *zap.Logger
}

func NewTwilioController(accountSID, authToken string, logger *zap.Logger) *TwilioController {
	return &TwilioController{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		logger: logger,
	}
}

func (c *TwilioController) updateCall(callSID, twimlDoc string) error {
	params := &openapi.UpdateCallParams{}
	params.SetTwiml(twimlDoc)
	if _, err := c.client.Api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("telephony: update call %s: %w", callSID, err)
	}
	return nil
}

// Transfer dials the human operator into an active call.
func (c *TwilioController) Transfer(ctx context.Context, callSID, transferNumber string) error {
	doc, err := TransferTwiML(transferNumber)
	if err != nil {
		return err
	}
	c.logger.Info("transferring call",
		zap.String("callSid", callSID), zap.String("to", transferNumber))
	return c.updateCall(callSID, doc)
}

// ConnectToStream redirects a waiting call into the media stream. Used when
// a queued caller is promoted.
func (c *TwilioController) ConnectToStream(ctx context.Context, callSID, wsURL, fromNumber, toNumber string) error {
	doc, err := StreamTwiML(wsURL, callSID, fromNumber, toNumber)
	if err != nil {
		return err
	}
	c.logger.Info("connecting queued call to stream", zap.String("callSid", callSID))
	return c.updateCall(callSID, doc)
}

// EndWithTimeout plays the wait-timeout message and hangs up.
func (c *TwilioController) EndWithTimeout(ctx context.Context, callSID, shopName string) error {
	doc, err := WaitTimeoutTwiML(shopName)
	if err != nil {
		return err
	}
	c.logger.Info("ending expired queued call", zap.String("callSid", callSID))
	return c.updateCall(callSID, doc)
}
