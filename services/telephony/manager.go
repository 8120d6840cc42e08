package telephony

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"revline/config"
	appointmentsRepo "revline/database/repository/appointments"
	callsRepo "revline/database/repository/calls"
	shopsRepo "revline/database/repository/shops"
	workordersRepo "revline/database/repository/workorders"
	"revline/models"
	"revline/services/billing"
	"revline/services/intelligence"
	"revline/services/notification"
	"revline/services/realtime"
	"revline/services/shopdata"
	"revline/services/sms"
	"revline/services/tools"
	"revline/services/voice"
)

// Manager is the telephony orchestrator: it runs admission for incoming
// webhooks, parks and promotes queued callers, builds call sessions for
// media streams, and fans out the terminal record.
type Manager struct {
	shops        shopsRepo.ShopRepository
	calls        callsRepo.CallRecordRepository
	workOrders   workordersRepo.WorkOrderRepository
	appointments appointmentsRepo.AppointmentRepository

	billing   billing.BillingService
	admission *voice.Admission
	limiter   *voice.Limiter
	resolver  voice.LimitResolver
	registry  *voice.Registry
	contexts  *intelligence.RedisContextStore
	push      *notification.PushService
	control   *TwilioController
	tasks     *asynq.Client
	logger    *zap.Logger

	// pending maps admitted calls to the shop whose limiter slot they hold
	// until their media stream starts (or the call dies first).
	mu      sync.Mutex
	pending map[string]string
}

// ManagerDeps bundle the manager's collaborators.
type ManagerDeps struct {
	Shops        shopsRepo.ShopRepository
	Calls        callsRepo.CallRecordRepository
	WorkOrders   workordersRepo.WorkOrderRepository
	Appointments appointmentsRepo.AppointmentRepository
	Billing      billing.BillingService
	Admission    *voice.Admission
	Limiter      *voice.Limiter
	Resolver     voice.LimitResolver
	Registry     *voice.Registry
	Contexts     *intelligence.RedisContextStore
	Push         *notification.PushService
	Control      *TwilioController
	Tasks        *asynq.Client
	Logger       *zap.Logger
}

// NewManager wires the orchestrator and installs the promotion and expiry
// callbacks on the admission controller.
func NewManager(deps ManagerDeps) *Manager {
	m := &Manager{
		shops:        deps.Shops,
		calls:        deps.Calls,
		workOrders:   deps.WorkOrders,
		appointments: deps.Appointments,
		billing:      deps.Billing,
		admission:    deps.Admission,
		limiter:      deps.Limiter,
		resolver:     deps.Resolver,
		registry:     deps.Registry,
		contexts:     deps.Contexts,
		push:         deps.Push,
		control:      deps.Control,
		tasks:        deps.Tasks,
		logger:       deps.Logger,
		pending:      make(map[string]string),
	}
	m.admission.OnPromoted = m.handlePromoted
	m.admission.OnExpired = m.handleExpired
	return m
}

// streamURL is the wss endpoint Twilio connects its media stream to.
func streamURL() string {
	base := config.AppConfig.TwilioWebhookBaseURL
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/api/voice/media-stream"
}

func waitURL() string {
	return config.AppConfig.TwilioWebhookBaseURL + "/api/voice/wait"
}

func (m *Manager) markPending(callSID, shopID string) {
	m.mu.Lock()
	m.pending[callSID] = shopID
	m.mu.Unlock()
}

// claimPending transfers slot ownership from the webhook (or promotion) to
// the session being created.
func (m *Manager) claimPending(callSID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shopID, ok := m.pending[callSID]
	if ok {
		delete(m.pending, callSID)
	}
	return shopID, ok
}

func (m *Manager) shopByNumber(ctx context.Context, toNumber string) *models.Shop {
	shop, err := m.shops.GetByPhoneNumber(ctx, toNumber)
	if err != nil {
		m.logger.Warn("no shop found for number, using demo profile",
			zap.String("to", toNumber), zap.Error(err))
		return &models.Shop{
			ID:          "demo:" + toNumber,
			Name:        "Demo Auto Shop",
			PhoneNumber: toNumber,
			Settings:    models.ShopSettings{QueueEnabled: false},
		}
	}
	return shop
}

// HandleIncoming runs quota and admission for one inbound call and returns
// the TwiML Twilio should execute.
func (m *Manager) HandleIncoming(ctx context.Context, callSID, fromNumber, toNumber string) (string, error) {
	shop := m.shopByNumber(ctx, toNumber)
	m.logger.Info("incoming call",
		zap.String("callSid", callSID), zap.String("from", fromNumber),
		zap.String("shopId", shop.ID))

	if quota := m.billing.CheckQuota(ctx, shop.ID); !quota.Allowed {
		m.logger.Warn("monthly quota exhausted, rejecting call",
			zap.String("shopId", shop.ID), zap.Int("used", quota.Used), zap.Int("limit", quota.Limit))
		m.push.NotifyQuotaExhausted(ctx, shop, quota)
		return QuotaExceededTwiML(shop.Name)
	}

	result := m.admission.Admit(ctx, voice.AdmitRequest{
		ShopID:       shop.ID,
		CallSID:      callSID,
		FromNumber:   fromNumber,
		ToNumber:     toNumber,
		QueueEnabled: shop.Settings.QueueEnabled,
		QueueTimeout: time.Duration(shop.Settings.QueueTimeoutSecs) * time.Second,
		QueueMaxSize: shop.Settings.QueueMaxSize,
	})

	switch result.Decision {
	case voice.DecisionAdmitted:
		m.markPending(callSID, shop.ID)
		return StreamTwiML(streamURL(), callSID, fromNumber, toNumber)
	case voice.DecisionQueued:
		return HoldTwiML(shop.Name, result.Position, waitURL())
	default:
		m.logger.Info("call rejected",
			zap.String("callSid", callSID), zap.String("reason", string(result.Reason)))
		return BusyTwiML(shop.Name)
	}
}

// HandleWait answers a parked caller's periodic redirect: still in line,
// being connected, or timed out.
func (m *Manager) HandleWait(ctx context.Context, callSID, toNumber string) (string, error) {
	shop := m.shopByNumber(ctx, toNumber)

	if position := m.admission.Position(shop.ID, callSID); position > 0 {
		return HoldAgainTwiML(position, waitURL())
	}

	// Not queued anymore: either promotion is redirecting this call via the
	// REST API, or the wait expired. A pending slot or live session means
	// promotion won; hold briefly and let the redirect land.
	m.mu.Lock()
	_, promoted := m.pending[callSID]
	m.mu.Unlock()
	if _, live := m.registry.Get(callSID); live || promoted {
		return HoldAgainTwiML(1, waitURL())
	}
	return WaitTimeoutTwiML(shop.Name)
}

// HandleStatus processes Twilio call-status callbacks, reclaiming slots and
// queue entries for calls that died before their stream started.
func (m *Manager) HandleStatus(ctx context.Context, callSID, toNumber, status string) {
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
	default:
		return
	}

	if _, ok := m.registry.Get(callSID); ok {
		// The media stream's stop event tears the session down.
		return
	}

	shop := m.shopByNumber(ctx, toNumber)
	m.admission.Abandon(shop.ID, callSID)

	if shopID, ok := m.claimPending(callSID); ok {
		m.logger.Info("call ended before stream start, releasing slot",
			zap.String("callSid", callSID), zap.String("shopId", shopID))
		m.limiter.Release(shopID)
	}
}

// handlePromoted redirects a queued caller into the media stream. The slot
// acquired by the dequeuer is parked as pending until the stream starts.
func (m *Manager) handlePromoted(call *voice.QueuedCall) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shop := m.shopByNumber(ctx, call.ToNumber)
	m.markPending(call.CallSID, shop.ID)

	if err := m.control.ConnectToStream(ctx, call.CallSID, streamURL(), call.FromNumber, call.ToNumber); err != nil {
		m.logger.Error("failed to connect promoted call",
			zap.String("callSid", call.CallSID), zap.Error(err))
		if shopID, ok := m.claimPending(call.CallSID); ok {
			m.limiter.Release(shopID)
		}
	}
}

// handleExpired hangs up a caller whose queue wait ran out.
func (m *Manager) handleExpired(call *voice.QueuedCall) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shop := m.shopByNumber(ctx, call.ToNumber)
	if err := m.control.EndWithTimeout(ctx, call.CallSID, shop.Name); err != nil {
		m.logger.Warn("failed to end expired call",
			zap.String("callSid", call.CallSID), zap.Error(err))
	}
	m.push.NotifyMissedCall(ctx, shop, call.FromNumber)
}

func (m *Manager) adapterFor(shop *models.Shop) shopdata.Adapter {
	if strings.HasPrefix(shop.ID, "demo:") {
		return shopdata.NewDemoAdapter()
	}
	return shopdata.NewMongoAdapter(shop, m.workOrders, m.appointments, m.logger)
}

// NewCallSession builds the session for a starting media stream. The stream
// bridge owns calling Start and Stop.
func (m *Manager) NewCallSession(ctx context.Context, callSID, fromNumber, toNumber string, onAudioOut func([]byte), onBargeIn func()) (*voice.Session, error) {
	shop := m.shopByNumber(ctx, toNumber)

	if _, ok := m.claimPending(callSID); !ok {
		// Stream started without a pending slot (e.g. after a restart).
		// Re-run the limiter so capacity accounting stays honest.
		limit := m.resolver.ConcurrentCallLimit(ctx, shop.ID)
		if !m.limiter.TryAcquire(shop.ID, limit) {
			return nil, ErrNoCapacity
		}
	}

	transferNumber := shop.Settings.TransferNumber
	if transferNumber == "" {
		transferNumber = config.AppConfig.DefaultTransferNumber
	}

	registry := tools.NewRegistry(m.adapterFor(shop), callSID, fromNumber, m.logger)
	transport := realtime.NewClient(config.AppConfig.OpenAIAPIKey, config.AppConfig.RealtimeModel, m.logger)

	session := voice.NewSession(voice.SessionParams{
		CallSID:           callSID,
		ShopID:            shop.ID,
		ShopName:          shop.Name,
		FromNumber:        fromNumber,
		ToNumber:          toNumber,
		SystemPrompt:      voice.SystemPrompt(shop.Name),
		Voice:             config.AppConfig.RealtimeVoice,
		InputAudioFormat:  "g711_ulaw",
		OutputAudioFormat: "g711_ulaw",
		TransferNumber:    transferNumber,
		GreetFirst:        true,
	}, voice.SessionDeps{
		Transport:  transport,
		Tools:      registry,
		Limiter:    m.limiter,
		Registry:   m.registry,
		Sink:       m,
		Logger:     m.logger,
		OnAudioOut: onAudioOut,
		OnBargeIn:  onBargeIn,
		Transfer: func(ctx context.Context, sid, reason string) error {
			if err := m.control.Transfer(ctx, sid, transferNumber); err != nil {
				return err
			}
			m.push.NotifyTransfer(ctx, shop, fromNumber, reason)
			return nil
		},
	})
	registry.Bind(session.Booking())

	if err := m.registry.Register(session); err != nil {
		m.limiter.Release(shop.ID)
		return nil, err
	}
	return session, nil
}

// SaveCallRecord is the session's record sink: persist, count usage, update
// caller continuity, and queue the summary text.
func (m *Manager) SaveCallRecord(ctx context.Context, record models.CallRecord) error {
	if _, err := m.calls.Create(ctx, record); err != nil {
		return err
	}

	if err := m.billing.IncrementUsage(ctx, record.ShopID); err != nil {
		m.logger.Warn("failed to increment usage",
			zap.String("shopId", record.ShopID), zap.Error(err))
	}

	if err := m.contexts.RecordCall(ctx, record.ShopID, record.CallerNumber,
		string(record.Intent), string(record.Outcome), record.TransferReason); err != nil {
		m.logger.Warn("failed to update caller context",
			zap.String("callSid", record.CallSID), zap.Error(err))
	}

	if m.tasks != nil {
		task, err := sms.NewCallSummaryTask(record.ShopID, record.CallSID)
		if err == nil {
			_, err = m.tasks.Enqueue(task)
		}
		if err != nil {
			m.logger.Warn("failed to queue call summary",
				zap.String("callSid", record.CallSID), zap.Error(err))
		}
	}
	return nil
}
