package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// WhatsApp Cloud API
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppAPIVersion    string
	WhatsAppGraphBaseURL  string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string

	// Conversation runtime
	WorkerCount            int
	WorkerLaneBuffer       int
	EventTimeout           time.Duration
	ExportTimeout          time.Duration
	SessionTTL             time.Duration
	SessionStore           string
	SessionSweepInterval   time.Duration
	ProcessedEventTTL      time.Duration
	ClinicTimezone         string
	AssistantFallbackReply string

	// Optional SQS hand-off between the webhook API and conversation workers
	ConversationQueueURL string
	QueueWaitSeconds     int
	QueueMaxMessages     int

	// Assistant LLM
	LLMProvider      string
	LLMModel         string
	LLMTimeout       time.Duration
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	GeminiAPIKey     string
	BedrockModelID   string
	AWSRegion        string
	AWSAccessKeyID   string
	AWSSecretKey     string
	AWSEndpointURL   string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	DatabaseURL      string
	AdminJWTSecret   string
	MetricsEnabled   bool
	ShutdownTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Appointment export sinks
	GoogleSheetsSpreadsheetID string
	GoogleSheetsRange         string
	GoogleCredentialsFile     string
	GoogleCredentialsJSON     string
	AppointmentsDynamoTable   string

	// Staff notification email
	ClinicNotifyEmail string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string

	// Sample media document
	MediaBucket     string
	MediaKey        string
	MediaURL        string
	MediaPresignTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAPIVersion:    getEnv("WHATSAPP_API_VERSION", "v21.0"),
		WhatsAppGraphBaseURL:  getEnv("WHATSAPP_GRAPH_BASE_URL", "https://graph.facebook.com"),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),

		WorkerCount:            getEnvAsInt("WORKER_COUNT", 4),
		WorkerLaneBuffer:       getEnvAsInt("WORKER_LANE_BUFFER", 64),
		EventTimeout:           getEnvAsDuration("EVENT_TIMEOUT", 45*time.Second),
		ExportTimeout:          getEnvAsDuration("EXPORT_TIMEOUT", 30*time.Second),
		SessionTTL:             getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SessionStore:           strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		SessionSweepInterval:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		ProcessedEventTTL:      getEnvAsDuration("PROCESSED_EVENT_TTL", 24*time.Hour),
		ClinicTimezone:         getEnv("CLINIC_TIMEZONE", "America/Lima"),
		AssistantFallbackReply: getEnv("ASSISTANT_FALLBACK_REPLY", ""),

		ConversationQueueURL: getEnv("CONVERSATION_QUEUE_URL", ""),
		QueueWaitSeconds:     getEnvAsInt("QUEUE_WAIT_SECONDS", 20),
		QueueMaxMessages:     getEnvAsInt("QUEUE_MAX_MESSAGES", 10),

		LLMProvider:      strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		LLMModel:         getEnv("LLM_MODEL", ""),
		LLMTimeout:       getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:   getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointURL:   getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
		MetricsEnabled:   getEnvAsBool("METRICS_ENABLED", true),
		ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		HTTPWriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),

		GoogleSheetsSpreadsheetID: getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
		GoogleSheetsRange:         getEnv("GOOGLE_SHEETS_RANGE", "reservas"),
		GoogleCredentialsFile:     getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCredentialsJSON:     getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		AppointmentsDynamoTable:   getEnv("APPOINTMENTS_DYNAMO_TABLE", ""),

		ClinicNotifyEmail: getEnv("CLINIC_NOTIFY_EMAIL", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Doctor Muelita"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Doctor Muelita"),

		MediaBucket:     getEnv("MEDIA_BUCKET", ""),
		MediaKey:        getEnv("MEDIA_KEY", "muelita-file.pdf"),
		MediaURL:        getEnv("MEDIA_URL", "https://s3.us-east-1.amazonaws.com/muelita.dev/muelita-file.pdf"),
		MediaPresignTTL: getEnvAsDuration("MEDIA_PRESIGN_TTL", 15*time.Minute),
	}
}

// UsesAWS reports whether any configured component needs AWS credentials.
func (c *Config) UsesAWS() bool {
	if c == nil {
		return false
	}
	return c.LLMProvider == "bedrock" ||
		c.ConversationQueueURL != "" ||
		c.AppointmentsDynamoTable != "" ||
		c.MediaBucket != "" ||
		(c.SESFromEmail != "" && c.SendGridAPIKey == "")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
