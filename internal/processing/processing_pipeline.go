package processing

import (
	"context"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/domain/entity"
)

const categoryErrInvalidPipelineEvent = "invalid_pipeline_event"

func (m Main) processPipelineEvent(ctx context.Context, record map[string]interface{}, event entity.Event) error {
	// Extract mandatory fields
	pipelineID, err := ExtractString(record, "pipelineId")
	if err != nil {
		return common.NewErrProcessingError(err, categoryErrInvalidPipelineEvent, nil, "failed to extract pipelineId")
	}

	// Collect optional fields, dropping the malformed ones
	patch := make(map[string]interface{})

	status, err := ExtractString(record, "status")
	if err == nil {
		patch["status"] = status
	}

	for _, key := range []string{"lagSeconds", "throughputPerMin", "errorRatePerMin"} {
		value, fieldErr := ExtractNumber(record, key)
		if fieldErr != nil {
			continue
		}

		patch[key] = value
	}

	for _, key := range []string{"lastSuccessAt", "lastErrorAt"} {
		ts, fieldErr := ExtractTime(record, key)
		if fieldErr != nil {
			continue
		}

		patch[key] = FormatTime(ts)
	}

	// The ordering token is the statistics window close time
	token, err := ExtractTime(record, "lastEventAt")
	if err != nil {
		return m.rejectStale(entity.KindPipeline, pipelineID, event)
	}

	patch["lastEventAt"] = FormatTime(token)

	update := entity.ProjectionUpdate{
		Collection: entity.CollectionPipelines,
		DocumentID: pipelineID,
		Token:      token,
		Set:        patch,
	}

	return m.applyProjection(ctx, entity.KindPipeline, update)
}
