package processing

import (
	"context"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/internal/routing"
)

const categoryErrInvalidServiceEvent = "invalid_service_event"

func (m Main) processServiceEvent(ctx context.Context, route routing.Entry, record map[string]interface{}, event entity.Event) error {
	// Extract mandatory fields
	serviceID, err := ExtractString(record, "serviceId")
	if err != nil {
		return common.NewErrProcessingError(err, categoryErrInvalidServiceEvent, nil, "failed to extract serviceId")
	}

	// Collect optional fields, dropping the malformed ones
	patch := make(map[string]interface{})

	for _, key := range []string{"status", "version", "region"} {
		value, fieldErr := ExtractString(record, key)
		if fieldErr != nil {
			continue
		}

		patch[key] = value
	}

	instanceCount, err := ExtractNumber(record, "instanceCount")
	if err == nil {
		patch["instanceCount"] = instanceCount
	}

	// Heartbeat and provenance derive from the bus, not the payload
	patch["lastHeartbeatAt"] = FormatTime(event.PublishTime)
	patch["source"] = map[string]interface{}{
		"topic":        route.Topic,
		"subscription": event.Subscription,
		"messageId":    event.MessageID,
		"publishedAt":  FormatTime(event.PublishTime),
	}

	update := entity.ProjectionUpdate{
		Collection: entity.CollectionServices,
		DocumentID: serviceID,
		Token:      event.PublishTime,
		Set:        patch,
	}

	return m.applyProjection(ctx, entity.KindService, update)
}
