package output

import (
	"context"

	"socflow/internal/domain/entity"
)

type UserInteractionPort interface {
	ReadMessage(ctx context.Context) (string, error)

	ShowTurn(ctx context.Context, turn *entity.TurnResult)
	ShowStage(ctx context.Context, index, total int, stage entity.Stage)
	ShowResult(ctx context.Context, content string)
	ShowError(ctx context.Context, err error)
}
