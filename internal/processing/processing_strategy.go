package processing

import (
	"context"
	"time"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/domain/entity"
)

const categoryErrInvalidStrategyEvent = "invalid_strategy_event"

func (m Main) processStrategyEvent(ctx context.Context, record map[string]interface{}, event entity.Event) error {
	// Extract mandatory fields
	strategyID, err := ExtractString(record, "strategyId")
	if err != nil {
		return common.NewErrProcessingError(err, categoryErrInvalidStrategyEvent, nil, "failed to extract strategyId")
	}

	// Collect optional fields, dropping the malformed ones
	patch := make(map[string]interface{})

	for _, key := range []string{"mode", "status"} {
		value, fieldErr := ExtractString(record, key)
		if fieldErr != nil {
			continue
		}

		patch[key] = value
	}

	// The ordering token is the most recent of the two activity
	// timestamps. A timestamp that fails to parse contributes nothing.
	var token time.Time

	for _, key := range []string{"lastDecisionAt", "lastHeartbeatAt"} {
		ts, fieldErr := ExtractTime(record, key)
		if fieldErr != nil {
			continue
		}

		patch[key] = FormatTime(ts)

		if ts.After(token) {
			token = ts
		}
	}

	if token.IsZero() {
		return m.rejectStale(entity.KindStrategy, strategyID, event)
	}

	update := entity.ProjectionUpdate{
		Collection: entity.CollectionStrategies,
		DocumentID: strategyID,
		Token:      token,
		Set:        patch,
	}

	return m.applyProjection(ctx, entity.KindStrategy, update)
}
