package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("CLINIC_TIMEZONE", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("EXPORT_TIMEOUT", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected openai provider by default, got %s", cfg.LLMProvider)
	}
	if cfg.ClinicTimezone != "America/Lima" {
		t.Fatalf("expected clinic timezone America/Lima, got %s", cfg.ClinicTimezone)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected 24h session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.ExportTimeout != 30*time.Second {
		t.Fatalf("expected 30s export timeout, got %s", cfg.ExportTimeout)
	}
	if cfg.SessionStore != "memory" {
		t.Fatalf("expected in-memory sessions by default, got %s", cfg.SessionStore)
	}
	if cfg.QueueWaitSeconds != 20 || cfg.QueueMaxMessages != 10 {
		t.Fatalf("unexpected queue defaults wait=%d max=%d", cfg.QueueWaitSeconds, cfg.QueueMaxMessages)
	}
	if cfg.WhatsAppAPIVersion != "v21.0" {
		t.Fatalf("unexpected graph api version %s", cfg.WhatsAppAPIVersion)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", " Gemini ")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SESSION_STORE", " Redis")
	t.Setenv("EVENT_TIMEOUT", "5s")
	t.Setenv("WORKER_LANE_BUFFER", "not-a-number")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
	if cfg.WorkerCount != 8 {
		t.Fatalf("expected worker count 8, got %d", cfg.WorkerCount)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.SessionStore != "redis" {
		t.Fatalf("expected normalized session store, got %q", cfg.SessionStore)
	}
	if cfg.EventTimeout != 5*time.Second {
		t.Fatalf("expected 5s event timeout, got %s", cfg.EventTimeout)
	}
	if cfg.WorkerLaneBuffer != 64 {
		t.Fatalf("expected invalid int to fall back to default, got %d", cfg.WorkerLaneBuffer)
	}
}

func TestUsesAWS(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"nothing aws", Config{LLMProvider: "openai"}, false},
		{"bedrock provider", Config{LLMProvider: "bedrock"}, true},
		{"dynamo export", Config{AppointmentsDynamoTable: "appointments"}, true},
		{"s3 media", Config{MediaBucket: "muelita.dev"}, true},
		{"sqs queue", Config{ConversationQueueURL: "http://localhost:4566/000000000000/conversations.fifo"}, true},
		{"ses without sendgrid", Config{SESFromEmail: "citas@doctormuelita.com"}, true},
		{"sendgrid wins over ses", Config{SESFromEmail: "a@b.c", SendGridAPIKey: "sg"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.UsesAWS(); got != tt.want {
				t.Fatalf("UsesAWS() = %v, want %v", got, tt.want)
			}
		})
	}
	var nilCfg *Config
	if nilCfg.UsesAWS() {
		t.Fatalf("nil config should not use aws")
	}
}
