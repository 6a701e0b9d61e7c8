package output

import (
	"time"

	"socflow/internal/domain/entity"
)

type MetricsPort interface {
	WorkflowStarted(taskType entity.TaskType)
	WorkflowFinished(taskType entity.TaskType, outcome entity.LifecycleState)
	SlotResolved(shape entity.AnswerShape, ok bool)
	LookupCalled(op string, err error, results int)
	TurnObserved(kind entity.TurnKind, d time.Duration)
}
