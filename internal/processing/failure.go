package processing

import (
	"context"
	"fmt"

	"github.com/opsdash/materializer/internal/domain/repo"
	"github.com/opsdash/materializer/pkg/pipeline"
)

type MainError struct {
	errorWriter repo.ProcessingErrorWriter
}

func NewMainError(errorWriter repo.ProcessingErrorWriter) MainError {
	return MainError{
		errorWriter: errorWriter,
	}
}

func (m MainError) Process(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	err := m.errorWriter.WriteProcessingError(ctx, pErr)
	if err != nil {
		return pipeline.NewErrRetryableError(fmt.Errorf("failed to archive processing error: %w", err))
	}

	return nil
}

// NoopError drops failures once counted, for deployments without an
// archive bucket.
type NoopError struct{}

func (NoopError) Process(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	return nil
}
