package output

import (
	"context"

	"socflow/internal/domain/entity"
)

type LookupQuery struct {
	TaskType entity.TaskType
	Slot     string
	Key      string
	Limit    int
}

// LookupProvider supplies data-backed candidates for selection-from-lookup slots.
type LookupProvider interface {
	Search(ctx context.Context, org entity.OrgContext, q LookupQuery) ([]entity.LookupCandidate, error)
	ResolveByID(ctx context.Context, org entity.OrgContext, token string) (entity.LookupCandidate, bool, error)
}
