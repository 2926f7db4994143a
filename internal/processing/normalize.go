package processing

import (
	"strconv"
)

const defaultSchemaVersion = 1

var schemaVersionKeys = []string{"schemaVersion", "schema_version"}

// Field names used by v1 publishers, keyed to their canonical form.
// Single word fields spell the same in both schemas and need no entry.
var legacyFieldNames = map[string]string{
	"service_id":         "serviceId",
	"last_heartbeat_at":  "lastHeartbeatAt",
	"instance_count":     "instanceCount",
	"strategy_id":        "strategyId",
	"last_decision_at":   "lastDecisionAt",
	"pipeline_id":        "pipelineId",
	"lag_seconds":        "lagSeconds",
	"throughput_per_min": "throughputPerMin",
	"error_rate_per_min": "errorRatePerMin",
	"last_success_at":    "lastSuccessAt",
	"last_error_at":      "lastErrorAt",
	"last_event_at":      "lastEventAt",
	"alert_id":           "alertId",
	"dedupe_key":         "dedupeKey",
	"entity_ref":         "entityRef",
	"first_seen_at":      "firstSeenAt",
	"last_seen_at":       "lastSeenAt",
}

// Canonical rewrites a raw payload into the canonical field set.
// It never fails: unknown keys pass through untouched and malformed
// values are left for the kind handlers to deal with.
func Canonical(payload map[string]interface{}, attributes map[string]string) map[string]interface{} {
	version := schemaVersion(payload, attributes)

	ret := make(map[string]interface{}, len(payload))

	for key, value := range payload {
		if isSchemaVersionKey(key) {
			continue
		}

		if version <= 1 {
			_, legacy := legacyFieldNames[key]
			if legacy {
				continue
			}
		}

		ret[key] = value
	}

	if version > 1 {
		return ret
	}

	for key, value := range payload {
		canonical, legacy := legacyFieldNames[key]
		if !legacy {
			continue
		}

		// Canonical spelling wins when a payload carries both
		_, present := ret[canonical]
		if present {
			continue
		}

		ret[canonical] = value
	}

	return ret
}

func schemaVersion(payload map[string]interface{}, attributes map[string]string) int {
	for _, key := range schemaVersionKeys {
		value, present := attributes[key]
		if !present {
			continue
		}

		version, err := strconv.Atoi(value)
		if err != nil {
			continue
		}

		return version
	}

	for _, key := range schemaVersionKeys {
		value, present := payload[key]
		if !present {
			continue
		}

		switch v := value.(type) {
		case float64:
			return int(v)
		case string:
			version, err := strconv.Atoi(v)
			if err != nil {
				continue
			}

			return version
		}
	}

	return defaultSchemaVersion
}

func isSchemaVersionKey(key string) bool {
	for _, candidate := range schemaVersionKeys {
		if key == candidate {
			return true
		}
	}

	return false
}
