package executor

import (
	"context"
	"fmt"

	"socflow/internal/application/port/input"
	"socflow/internal/application/port/output"
	"socflow/internal/application/service"
	"socflow/internal/domain/entity"
	"socflow/internal/infrastructure/prompts"
)

var _ input.TaskExecutor = (*UseCase)(nil)

const (
	stageTemperature  = 0.2
	maxStageOutputLen = 20000
)

// ProgressStore records the stage a running workflow has reached.
type ProgressStore interface {
	SetStage(ctx context.Context, conversationID, workflowID string, stageIndex int) (bool, error)
}

// UseCase runs a confirmed workflow one declared stage at a time, feeding each
// stage's answer back to the model as context for the next.
type UseCase struct {
	llm             output.LLMPort
	catalog         *service.TaskCatalog
	formatter       *prompts.Formatter
	logger          output.LoggerPort
	userInteraction output.UserInteractionPort
	progress        ProgressStore
}

func New(
	llm output.LLMPort,
	catalog *service.TaskCatalog,
	formatter *prompts.Formatter,
	logger output.LoggerPort,
	userInteraction output.UserInteractionPort,
) *UseCase {
	return &UseCase{
		llm:             llm,
		catalog:         catalog,
		formatter:       formatter,
		logger:          logger,
		userInteraction: userInteraction,
	}
}

// WithProgress makes Execute publish StageIndex as stages start and stop early
// once the stored workflow is cleared or replaced.
func (uc *UseCase) WithProgress(store ProgressStore) *UseCase {
	uc.progress = store
	return uc
}

func (uc *UseCase) Execute(ctx context.Context, wf *entity.WorkflowInstance) (*input.ExecuteResult, error) {
	if wf == nil {
		return nil, fmt.Errorf("execute: %w", entity.ErrNoActiveWorkflow)
	}
	if wf.State != entity.StateExecuting {
		return nil, fmt.Errorf("execute workflow %s: state is %s, want %s", wf.ID, wf.State, entity.StateExecuting)
	}

	def, ok := uc.catalog.Definition(wf.TaskType)
	if !ok {
		return nil, fmt.Errorf("execute workflow %s: %w: %s", wf.ID, entity.ErrUnknownTaskType, wf.TaskType)
	}

	systemPrompt, err := uc.formatter.ExecutionPrompt(def, wf)
	if err != nil {
		return nil, fmt.Errorf("failed to generate system prompt: %w", err)
	}

	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: systemPrompt},
	}

	uc.logger.Info("Executing workflow",
		"workflowId", wf.ID,
		"taskType", wf.TaskType,
		"stages", len(def.Stages))

	total := len(def.Stages)
	var finalAnswer string

	for i := wf.StageIndex; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("execution interrupted at stage %d: %w", i+1, err)
		}

		stage := def.Stages[i]
		if err := uc.recordStage(ctx, wf, i); err != nil {
			return nil, err
		}
		if uc.userInteraction != nil {
			uc.userInteraction.ShowStage(ctx, i+1, total, stage)
		}

		uc.logger.Debug("Starting stage", "workflowId", wf.ID, "stage", stage.Name, "index", i+1)

		messages = append(messages, entity.Message{
			Role:    entity.RoleUser,
			Content: fmt.Sprintf("Stage %d of %d: %s\n%s", i+1, total, stage.Name, stage.Description),
		})

		resp, err := uc.llm.Chat(ctx, output.ChatRequest{
			Messages:    messages,
			Temperature: stageTemperature,
		})
		if err != nil {
			return nil, fmt.Errorf("stage %s: llm request failed: %w", stage.Name, err)
		}

		finalAnswer = resp.Message.Content

		history := resp.Message
		if len(history.Content) > maxStageOutputLen {
			history.Content = history.Content[:maxStageOutputLen] + "\n... (truncated)"
		}
		messages = append(messages, history)

		uc.logger.Debug("Stage completed", "workflowId", wf.ID, "stage", stage.Name, "resultLen", len(finalAnswer))
	}

	if err := uc.recordStage(ctx, wf, total); err != nil {
		return nil, err
	}

	return &input.ExecuteResult{
		WorkflowID:  wf.ID,
		TaskType:    wf.TaskType,
		FinalAnswer: finalAnswer,
		Stages:      total,
	}, nil
}

func (uc *UseCase) recordStage(ctx context.Context, wf *entity.WorkflowInstance, index int) error {
	wf.StageIndex = index
	if uc.progress == nil {
		return nil
	}

	live, err := uc.progress.SetStage(ctx, wf.ConversationID, wf.ID, index)
	if err != nil {
		uc.logger.Warn("Failed to record stage progress", "workflowId", wf.ID, "stageIndex", index, "error", err)
		return nil
	}
	if !live {
		return fmt.Errorf("workflow %s at stage %d: %w", wf.ID, index+1, entity.ErrSuperseded)
	}
	return nil
}
