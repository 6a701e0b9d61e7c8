package output

import (
	"context"

	"socflow/internal/domain/entity"
)

// WorkflowStore holds at most one live workflow per conversation. Get returns a
// copy; changes become visible only through Put.
type WorkflowStore interface {
	Create(ctx context.Context, conversationID string, taskType entity.TaskType, initial map[string]entity.SlotValue) (*entity.WorkflowInstance, error)
	Get(ctx context.Context, conversationID string) (*entity.WorkflowInstance, bool, error)
	Put(ctx context.Context, conversationID string, inst *entity.WorkflowInstance) error
	Remove(ctx context.Context, conversationID string) error
	// SetStage records execution progress. It reports false, without writing,
	// when the conversation no longer holds workflowID in the executing state.
	SetStage(ctx context.Context, conversationID, workflowID string, stageIndex int) (bool, error)
	Len() int
}
