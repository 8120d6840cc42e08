package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"revline/models"
	"revline/services/intelligence"
)

// SummaryService texts callers a short recap after their call, when the
// shop opted in and the caller has not opted out.
type SummaryService struct {
	client   *twilio.RestClient
	contexts *intelligence.RedisContextStore
	logger   *zap.Logger
}

func NewSummaryService(accountSID, authToken string, contexts *intelligence.RedisContextStore, logger *zap.Logger) *SummaryService {
	return &SummaryService{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		contexts: contexts,
		logger:   logger,
	}
}

func summaryBody(shop *models.Shop, record *models.CallRecord) string {
	switch record.Outcome {
	case models.OutcomeTransferred:
		return fmt.Sprintf("Thanks for calling %s. We connected you with our team and they'll follow up if anything is pending. Reply STOP to opt out.", shop.Name)
	case models.OutcomeResolved:
		if record.Intent == models.IntentBookVisit {
			return fmt.Sprintf("Thanks for calling %s. Your appointment is booked; we look forward to seeing you. Reply STOP to opt out.", shop.Name)
		}
		return fmt.Sprintf("Thanks for calling %s. Glad we could help today. Reply STOP to opt out.", shop.Name)
	default:
		return fmt.Sprintf("Thanks for calling %s. Sorry we got cut off; call us back any time. Reply STOP to opt out.", shop.Name)
	}
}

// SendCallSummary sends the post-call text for one finished call.
func (s *SummaryService) SendCallSummary(ctx context.Context, shop *models.Shop, record *models.CallRecord) error {
	if !shop.Settings.SMSCallSummaryEnabled || shop.Settings.SMSFromNumber == "" {
		return nil
	}
	if record.CallerNumber == "" {
		return nil
	}

	callerCtx, err := s.contexts.Get(ctx, shop.ID, record.CallerNumber)
	if err != nil {
		s.logger.Warn("caller context lookup failed, skipping summary",
			zap.String("callSid", record.CallSID), zap.Error(err))
		return nil
	}
	if callerCtx.SMSOptedOut {
		return nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(record.CallerNumber)
	params.SetFrom(shop.Settings.SMSFromNumber)
	params.SetBody(summaryBody(shop, record))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sms: send summary: %w", err)
	}
	s.logger.Info("call summary sent",
		zap.String("shopId", shop.ID), zap.String("callSid", record.CallSID))
	return nil
}

// HandleInbound processes a reply to the summary number. STOP opts the
// caller out of future texts; START opts back in.
func (s *SummaryService) HandleInbound(ctx context.Context, shopID, from, body string) error {
	keyword := strings.ToUpper(strings.TrimSpace(body))

	callerCtx, err := s.contexts.Get(ctx, shopID, from)
	if err != nil {
		return err
	}
	switch keyword {
	case "STOP", "STOPALL", "UNSUBSCRIBE", "CANCEL", "QUIT":
		callerCtx.SMSOptedOut = true
	case "START", "UNSTOP", "YES":
		callerCtx.SMSOptedOut = false
	default:
		return nil
	}
	if err := s.contexts.Set(ctx, callerCtx); err != nil {
		return err
	}
	s.logger.Info("sms preference updated",
		zap.String("shopId", shopID), zap.Bool("optedOut", callerCtx.SMSOptedOut))
	return nil
}
