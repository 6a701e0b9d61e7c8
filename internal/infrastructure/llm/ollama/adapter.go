package ollama

import (
	"context"
	"fmt"
	"strings"

	"socflow/internal/application/port/output"
	"socflow/internal/domain/entity"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"
)

var _ output.LLMPort = (*OllamaAdapter)(nil)

type Config struct {
	ServerURL string
	Model     string
	Logger    output.LoggerPort
}

// OllamaAdapter serves chat requests from a local Ollama daemon through langchaingo.
type OllamaAdapter struct {
	llm    llms.Model
	model  string
	logger output.LoggerPort
}

func NewOllamaAdapter(cfg Config) (*OllamaAdapter, error) {
	opts := []lcollama.Option{lcollama.WithModel(cfg.Model)}
	if cfg.ServerURL != "" {
		opts = append(opts, lcollama.WithServerURL(cfg.ServerURL))
	}

	llm, err := lcollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	return &OllamaAdapter{llm: llm, model: cfg.Model, logger: cfg.Logger}, nil
}

func (a *OllamaAdapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	resp, err := a.llm.GenerateContent(ctx, convertMessages(req.Messages),
		llms.WithTemperature(float64(req.Temperature)),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama generate failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	if a.logger != nil {
		a.logger.Debug("Ollama generation finished",
			"model", a.model,
			"stopReason", resp.Choices[0].StopReason,
		)
	}

	return &output.ChatResponse{
		Message: entity.Message{
			Role:    entity.RoleAssistant,
			Content: strings.TrimSpace(resp.Choices[0].Content),
		},
	}, nil
}

func convertMessages(messages []entity.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		result = append(result, llms.TextParts(chatType(msg.Role), msg.Content))
	}
	return result
}

func chatType(role entity.MessageRole) llms.ChatMessageType {
	switch role {
	case entity.RoleSystem:
		return llms.ChatMessageTypeSystem
	case entity.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
