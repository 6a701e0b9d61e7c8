package input

import (
	"context"

	"socflow/internal/domain/entity"
)

type ExecuteResult struct {
	WorkflowID  string
	TaskType    entity.TaskType
	FinalAnswer string
	Stages      int
}

// TaskExecutor performs a task once its workflow reached ready-to-execute.
type TaskExecutor interface {
	Execute(ctx context.Context, wf *entity.WorkflowInstance) (*ExecuteResult, error)
}
