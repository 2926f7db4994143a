package repo

import (
	"context"

	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/pkg/pipeline"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_repo.go

type ProjectionWriter interface {
	ApplyProjection(ctx context.Context, update entity.ProjectionUpdate) (entity.Outcome, error)
}

type Projection interface {
	ProjectionWriter
}

type ProcessingErrorWriter interface {
	WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error
}

type ProcessingError interface {
	ProcessingErrorWriter
}
