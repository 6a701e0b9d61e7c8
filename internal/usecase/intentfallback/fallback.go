package intentfallback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"socflow/internal/application/port/output"
	"socflow/internal/application/service"
	"socflow/internal/domain/entity"
	"socflow/internal/infrastructure/prompts"
)

// Classifier asks the language model to route utterances the phrase matchers
// missed. Replies naming a task outside the catalog never match.
type Classifier struct {
	llm       output.LLMPort
	catalog   *service.TaskCatalog
	formatter *prompts.Formatter
	logger    output.LoggerPort
}

func New(llm output.LLMPort, catalog *service.TaskCatalog, formatter *prompts.Formatter, logger output.LoggerPort) *Classifier {
	return &Classifier{
		llm:       llm,
		catalog:   catalog,
		formatter: formatter,
		logger:    logger,
	}
}

func (c *Classifier) Classify(ctx context.Context, utterance string) (entity.IntentMatch, error) {
	if strings.TrimSpace(utterance) == "" {
		return entity.IntentMatch{}, nil
	}

	verdict, err := c.Evaluate(ctx, entity.IntentCriteria{
		Utterance: utterance,
		Tasks:     c.catalog.Definitions(),
	})
	if err != nil {
		return entity.IntentMatch{}, err
	}
	if verdict == nil {
		return entity.IntentMatch{}, nil
	}

	taskType := entity.TaskType(strings.TrimSpace(verdict.TaskType))
	if taskType == "" {
		return entity.IntentMatch{}, nil
	}
	if !c.catalog.Has(taskType) {
		c.logger.Warn("Model proposed a task outside the catalog", "taskType", taskType)
		return entity.IntentMatch{}, nil
	}

	return entity.IntentMatch{
		Matched:    true,
		TaskType:   taskType,
		Confidence: clamp(verdict.Confidence),
	}, nil
}

// Evaluate returns nil without error when the reply cannot be parsed.
func (c *Classifier) Evaluate(ctx context.Context, criteria entity.IntentCriteria) (*entity.IntentVerdict, error) {
	prompt, err := c.formatter.IntentPrompt(criteria.Tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to generate intent prompt: %w", err)
	}

	resp, err := c.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: prompt},
			{Role: entity.RoleUser, Content: criteria.Utterance},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("intent llm request failed: %w", err)
	}

	verdict, err := parseVerdict(resp.Message.Content)
	if err != nil {
		c.logger.Warn("Failed to parse intent response, treating as no match", "error", err)
		return nil, nil
	}

	c.logger.Info("Intent fallback verdict",
		"taskType", verdict.TaskType,
		"confidence", verdict.Confidence,
		"reason", verdict.Reason,
	)

	return verdict, nil
}

func parseVerdict(response string) (*entity.IntentVerdict, error) {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")

	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var verdict entity.IntentVerdict
	if err := json.Unmarshal([]byte(response[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &verdict, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
