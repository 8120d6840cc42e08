package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"revline/models"
)

// PushService sends owner-facing push notifications through Firebase Cloud
// Messaging: transferred calls, missed calls, and quota exhaustion.
type PushService struct {
	client *messaging.Client
	logger *zap.Logger
}

func NewPushService(client *messaging.Client, logger *zap.Logger) *PushService {
	return &PushService{client: client, logger: logger}
}

func (s *PushService) send(ctx context.Context, token, title, body string, data map[string]string) {
	if s.client == nil || token == "" {
		return
	}
	_, err := s.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		s.logger.Warn("push notification failed", zap.Error(err))
	}
}

// NotifyTransfer tells the owner a caller was handed to a human.
func (s *PushService) NotifyTransfer(ctx context.Context, shop *models.Shop, callerNumber, reason string) {
	s.send(ctx, shop.OwnerFCMTok,
		"Call transferred",
		fmt.Sprintf("%s was transferred: %s", callerNumber, reason),
		map[string]string{"type": "transfer", "caller": callerNumber})
}

// NotifyMissedCall tells the owner a caller gave up or timed out waiting.
func (s *PushService) NotifyMissedCall(ctx context.Context, shop *models.Shop, callerNumber string) {
	s.send(ctx, shop.OwnerFCMTok,
		"Missed call",
		fmt.Sprintf("%s could not be connected", callerNumber),
		map[string]string{"type": "missed_call", "caller": callerNumber})
}

// NotifyQuotaExhausted tells the owner the monthly call quota ran out.
func (s *PushService) NotifyQuotaExhausted(ctx context.Context, shop *models.Shop, quota models.QuotaStatus) {
	s.send(ctx, shop.OwnerFCMTok,
		"Call quota reached",
		fmt.Sprintf("Your %s plan's monthly call limit (%d) is used up. Upgrade to keep answering.",
			models.PlanNames[quota.PlanTier], quota.Limit),
		map[string]string{"type": "quota_exhausted"})
}
