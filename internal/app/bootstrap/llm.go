package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/muelita-bot/internal/config"
	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// Supported LLM_PROVIDER values.
const (
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
)

// BuildLLMClient returns the completion client for cfg.LLMProvider and the
// model id requests should carry. awsCfg is only consulted for bedrock.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (conversation.LLMClient, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	model := strings.TrimSpace(cfg.LLMModel)

	switch cfg.LLMProvider {
	case ProviderOpenAI, "":
		client, err := conversation.NewOpenAILLMClientFromKey(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: openai: %w", err)
		}
		logger.Info("assistant using openai", "model", model)
		return client, model, nil
	case ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, "", fmt.Errorf("bootstrap: GEMINI_API_KEY is required for the gemini provider")
		}
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, model)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: gemini: %w", err)
		}
		logger.Info("assistant using gemini", "model", model)
		return client, model, nil
	case ProviderBedrock:
		if awsCfg == nil {
			return nil, "", fmt.Errorf("bootstrap: aws config is required for the bedrock provider")
		}
		modelID := strings.TrimSpace(cfg.BedrockModelID)
		if modelID == "" {
			modelID = model
		}
		if modelID == "" {
			return nil, "", fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		logger.Info("assistant using bedrock", "model", modelID, "region", awsCfg.Region)
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), modelID), modelID, nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// BuildAssistant wraps client with the clinic system prompt and limits.
func BuildAssistant(cfg *appconfig.Config, client conversation.LLMClient, model string, logger *logging.Logger, m *metrics.BotMetrics) *conversation.LLMAssistant {
	opts := []conversation.AssistantOption{
		conversation.WithAssistantLogger(logger),
		conversation.WithAssistantMetrics(m),
	}
	if cfg != nil && cfg.LLMTimeout > 0 {
		opts = append(opts, conversation.WithAssistantTimeout(cfg.LLMTimeout))
	}
	return conversation.NewLLMAssistant(client, model, opts...)
}
