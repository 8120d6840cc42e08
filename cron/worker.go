package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"revline/config"
	callsRepo "revline/database/repository/calls"
	shopsRepo "revline/database/repository/shops"
	"revline/services/sms"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitSummaryWorker runs the async worker in background.
func InitSummaryWorker(summarySvc *sms.SummaryService, shops shopsRepo.ShopRepository, calls callsRepo.CallRecordRepository) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(sms.TypeCallSummary, handleSummaryTask(summarySvc, shops, calls))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[SummaryWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SummaryWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SummaryWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleSummaryTask(summarySvc *sms.SummaryService, shops shopsRepo.ShopRepository, calls callsRepo.CallRecordRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p sms.CallSummaryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[SummaryHandler] 🔴 Invalid payload: %v", err)
			return err
		}

		shop, err := shops.GetByID(ctx, p.ShopID)
		if err != nil {
			log.Printf("[SummaryHandler] ❌ Shop lookup failed for %s: %v", p.ShopID, err)
			return err
		}
		record, err := calls.GetByCallSID(ctx, p.CallSID)
		if err != nil {
			log.Printf("[SummaryHandler] ❌ Call record lookup failed for %s: %v", p.CallSID, err)
			return err
		}

		if err := summarySvc.SendCallSummary(ctx, shop, record); err != nil {
			log.Printf("[SummaryHandler] ❌ Failed to send summary for %s: %v", p.CallSID, err)
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[SummaryWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
