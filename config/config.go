package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB configuration.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisUsageDB  int    `mapstructure:"REDIS_USAGE_DB"`
	RedisTaskDB   int    `mapstructure:"REDIS_TASK_DB"`

	// Call admission and queueing.
	MaxGlobalConcurrentCalls int `mapstructure:"MAX_GLOBAL_CONCURRENT_CALLS"`
	CallQueueTimeoutSecs     int `mapstructure:"CALL_QUEUE_TIMEOUT_SECS"`
	CallQueueMaxSize         int `mapstructure:"CALL_QUEUE_MAX_SIZE"`
	CallQueueSweepSecs       int `mapstructure:"CALL_QUEUE_SWEEP_SECS"`

	// OpenAI Realtime API.
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
	RealtimeModel string `mapstructure:"REALTIME_MODEL"`
	RealtimeVoice string `mapstructure:"REALTIME_VOICE"`

	// Twilio telephony.
	TwilioAccountSID      string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken       string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWebhookBaseURL  string `mapstructure:"TWILIO_WEBHOOK_BASE_URL"`
	DefaultTransferNumber string `mapstructure:"DEFAULT_TRANSFER_NUMBER"`

	// Stripe billing.
	StripeKey            string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret  string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeStarterPriceID string `mapstructure:"STRIPE_STARTER_PRICE_ID"`
	StripeProPriceID     string `mapstructure:"STRIPE_PRO_PRICE_ID"`

	// Gemini (text chat testing endpoint).
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Firebase push notifications.
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`

	// Admin credentials (bcrypt hash of the dashboard admin secret).
	AdminSecretHash string `mapstructure:"ADMIN_SECRET_HASH"`
}

var AppConfig Config

// LoadConfig initializes Viper to load config values from env, file, or defaults.
func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "revline")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_USAGE_DB", 1)
	viper.SetDefault("REDIS_TASK_DB", 2)
	viper.SetDefault("MAX_GLOBAL_CONCURRENT_CALLS", 50)
	viper.SetDefault("CALL_QUEUE_TIMEOUT_SECS", 300)
	viper.SetDefault("CALL_QUEUE_MAX_SIZE", 5)
	viper.SetDefault("CALL_QUEUE_SWEEP_SECS", 5)
	viper.SetDefault("REALTIME_MODEL", "gpt-4o-realtime-preview")
	viper.SetDefault("REALTIME_VOICE", "alloy")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
