package processing

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/domain/entity"
)

const categoryErrInvalidAlertEvent = "invalid_alert_event"

var errNoAlertIdentity = errors.New("no identity bearing field")

func (m Main) processAlertEvent(ctx context.Context, record map[string]interface{}, event entity.Event) error {
	// Derive the alert identity
	alertID, err := m.computeAlertID(record)
	if err != nil {
		return common.NewErrProcessingError(err, categoryErrInvalidAlertEvent, nil, "failed to derive alert identity")
	}

	// Collect optional fields, dropping the malformed ones
	patch := make(map[string]interface{})

	for _, key := range []string{"severity", "state", "entityRef"} {
		value, fieldErr := ExtractString(record, key)
		if fieldErr != nil {
			continue
		}

		patch[key] = value
	}

	patch["lastSeenAt"] = FormatTime(event.PublishTime)

	// firstSeenAt sticks to the first materialized delivery
	firstSeen := event.PublishTime

	ts, err := ExtractTime(record, "firstSeenAt")
	if err == nil {
		firstSeen = ts
	}

	update := entity.ProjectionUpdate{
		Collection: entity.CollectionAlerts,
		DocumentID: alertID,
		Token:      event.PublishTime,
		Set:        patch,
		SetOnCreate: map[string]interface{}{
			"firstSeenAt": FormatTime(firstSeen),
		},
	}

	return m.applyProjection(ctx, entity.KindAlert, update)
}

// computeAlertID picks the first explicit identity field, falling back to a
// hash of entityRef and category when the publisher sent none.
func (m Main) computeAlertID(record map[string]interface{}) (string, error) {
	for _, key := range []string{"dedupeKey", "fingerprint", "alertId"} {
		value, err := ExtractString(record, key)
		if err == nil {
			return value, nil
		}
	}

	entityRef, entityErr := ExtractString(record, "entityRef")
	category, categoryErr := ExtractString(record, "category")

	if entityErr != nil && categoryErr != nil {
		return "", errNoAlertIdentity
	}

	key := fmt.Sprintf("%s/%s", entityRef, category)
	hash := md5.Sum([]byte(key))

	return hex.EncodeToString(hash[:]), nil
}
