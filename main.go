// File: revline/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"revline/config"
	"revline/cron"
	"revline/database"
	appointmentsRepo "revline/database/repository/appointments"
	callsRepo "revline/database/repository/calls"
	shopsRepo "revline/database/repository/shops"
	subscriptionsRepo "revline/database/repository/subscriptions"
	workordersRepo "revline/database/repository/workorders"
	"revline/handlers"
	"revline/middleware"
	"revline/routes"
	"revline/services/billing"
	"revline/services/intelligence"
	"revline/services/notification"
	"revline/services/sms"
	"revline/services/telephony"
	"revline/services/voice"
	"revline/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	shopRepo := shopsRepo.NewMongoShopRepo()
	callRepo := callsRepo.NewMongoCallRepo()
	workOrderRepo := workordersRepo.NewMongoWorkOrderRepo()
	appointmentRepo := appointmentsRepo.NewMongoAppointmentRepo()
	subscriptionRepo := subscriptionsRepo.NewMongoSubscriptionRepo()

	// billing and plan limits.
	billingService := billing.NewBillingService(subscriptionRepo, utils.GetUsageCacheClient(), logger)
	limitResolver := billing.NewPlanLimitResolver(shopRepo, billingService, logger)

	// call admission.
	limiter := voice.NewLimiter(config.AppConfig.MaxGlobalConcurrentCalls, logger)
	waitQueue := voice.NewWaitQueue(config.AppConfig.CallQueueMaxSize, logger)
	sessionRegistry := voice.NewRegistry(logger)
	admission := voice.NewAdmission(limiter, waitQueue, limitResolver, voice.AdmissionConfig{
		SweepInterval:       time.Duration(config.AppConfig.CallQueueSweepSecs) * time.Second,
		DefaultQueueTimeout: time.Duration(config.AppConfig.CallQueueTimeoutSecs) * time.Second,
	}, logger)

	// caller memory, chat, and notifications.
	contextStore := intelligence.NewRedisContextStore(utils.GetCacheClient(), 90*24*time.Hour)
	geminiClient := intelligence.NewGeminiClient(config.AppConfig.GeminiAPIKey)
	chatService := intelligence.NewChatService(geminiClient, utils.GetCacheClient(), logger)
	pushService := notification.NewPushService(utils.FCMClient, logger)

	// telephony.
	twilioControl := telephony.NewTwilioController(
		config.AppConfig.TwilioAccountSID, config.AppConfig.TwilioAuthToken, logger)
	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	})
	defer taskClient.Close()
	summaryService := sms.NewSummaryService(
		config.AppConfig.TwilioAccountSID, config.AppConfig.TwilioAuthToken, contextStore, logger)

	manager := telephony.NewManager(telephony.ManagerDeps{
		Shops:        shopRepo,
		Calls:        callRepo,
		WorkOrders:   workOrderRepo,
		Appointments: appointmentRepo,
		Billing:      billingService,
		Admission:    admission,
		Limiter:      limiter,
		Resolver:     limitResolver,
		Registry:     sessionRegistry,
		Contexts:     contextStore,
		Push:         pushService,
		Control:      twilioControl,
		Tasks:        taskClient,
		Logger:       logger,
	})

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		// Telephony webhooks.
		IncomingCallHandler: handlers.IncomingCallHandler(manager),
		WaitHandler:         handlers.WaitHandler(manager),
		CallStatusHandler:   handlers.CallStatusHandler(manager),
		MediaStreamHandler:  handlers.MediaStreamHandler(manager),
		InboundSMSHandler:   handlers.InboundSMSHandler(summaryService, shopRepo),

		// Monitoring.
		AdminLoginHandler:     handlers.AdminLoginHandler(),
		ActiveSessionsHandler: handlers.ActiveSessionsHandler(sessionRegistry),
		QueuePositionHandler:  handlers.QueuePositionHandler(admission),
		CapacityHandler:       handlers.CapacityHandler(limiter, admission),

		// Text chat.
		ChatHandler:      handlers.ChatHandler(chatService, shopRepo, workOrderRepo, appointmentRepo),
		ChatResetHandler: handlers.ChatResetHandler(chatService),

		// Billing.
		SubscriptionHandler:  handlers.SubscriptionHandler(billingService),
		CheckoutHandler:      handlers.CheckoutHandler(billingService),
		PortalHandler:        handlers.PortalHandler(billingService),
		StripeWebhookHandler: handlers.StripeWebhookHandler(billingService),

		// Shop management.
		RegisterShopHandler:       handlers.RegisterShopHandler(shopRepo),
		GetShopHandler:            handlers.GetShopHandler(shopRepo),
		UpdateShopSettingsHandler: handlers.UpdateShopSettingsHandler(shopRepo),
		CallHistoryHandler:        handlers.CallHistoryHandler(callRepo),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Background loops: queue promotion, SMS summary worker, health checks.
	admissionCtx, stopAdmission := context.WithCancel(context.Background())
	go admission.Run(admissionCtx)
	cron.InitSummaryWorker(summaryService, shopRepo, callRepo)
	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetUsageCacheClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	// Stop promoting queued calls, then drain live sessions.
	stopAdmission()
	if active := sessionRegistry.Count(); active > 0 {
		logger.Sugar().Infof("main: ending %d active call sessions", active)
		sessionRegistry.StopAll()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
