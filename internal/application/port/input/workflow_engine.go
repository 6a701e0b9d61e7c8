package input

import (
	"context"

	"socflow/internal/domain/entity"
)

type WorkflowEngine interface {
	DetectIntent(ctx context.Context, utterance string) entity.IntentMatch
	StartWorkflow(ctx context.Context, conversationID string, taskType entity.TaskType, initial map[string]string, org entity.OrgContext) (*entity.TurnResult, error)
	GetWorkflow(ctx context.Context, conversationID string) (*entity.WorkflowInstance, bool, error)
	ClearWorkflow(ctx context.Context, conversationID string) error
	SubmitAnswer(ctx context.Context, conversationID, rawAnswer string, org entity.OrgContext) (*entity.TurnResult, error)
	HandleMessage(ctx context.Context, conversationID, utterance string, org entity.OrgContext) (*entity.TurnResult, error)
	CompleteWorkflow(ctx context.Context, conversationID string) error
}
