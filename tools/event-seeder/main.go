package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/opsdash/materializer/pkg/pipeline"
)

var (
	pushURL    = flag.String("url", "http://localhost:8080/push", "push endpoint URL")
	count      = flag.Int("count", 100, "number of events to send")
	interval   = flag.Duration("interval", 100*time.Millisecond, "interval between events")
	kinds      = flag.String("kinds", "service,strategy,pipeline,alert", "comma-separated list of event kinds")
	entities   = flag.Int("entities", 10, "size of the entity pool per kind, smaller means more duplicates")
	subPrefix  = flag.String("subscription-prefix", "projects/demo/subscriptions", "subscription name prefix")
	legacyRate = flag.Float64("legacy-rate", 0.3, "fraction of events sent with the v1 schema")
)

var subscriptionByKind = map[string]string{
	"service":  "service-health",
	"strategy": "strategy-state",
	"pipeline": "pipeline-stats",
	"alert":    "alert-events",
}

func main() {
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	requested := strings.Split(*kinds, ",")
	log.Printf("Starting event seeder:")
	log.Printf("  Push URL: %s", *pushURL)
	log.Printf("  Event count: %d", *count)
	log.Printf("  Interval: %v", *interval)
	log.Printf("  Kinds: %v", requested)
	log.Printf("  Entity pool: %d", *entities)
	log.Printf("  Legacy rate: %.2f", *legacyRate)

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	successCount := 0
	staleOrFailCount := 0

	for i := 0; i < *count; i++ {
		kind := requested[rand.Intn(len(requested))]
		legacy := rand.Float64() < *legacyRate

		envelope := generateEnvelope(kind, legacy)

		err := send(client, *pushURL, envelope)
		if err != nil {
			log.Printf("Failed to send %s event: %v", kind, err)
			staleOrFailCount++
		} else {
			successCount++
			if successCount%50 == 0 {
				log.Printf("Progress: %d/%d events sent", successCount, *count)
			}
		}

		if *interval > 0 && i < *count-1 {
			time.Sleep(*interval)
		}
	}

	log.Printf("Seeding complete:")
	log.Printf("  Success: %d events", successCount)
	log.Printf("  Failed: %d events", staleOrFailCount)
}

func generateEnvelope(kind string, legacy bool) pipeline.Envelope {
	var payload map[string]interface{}

	switch kind {
	case "strategy":
		payload = generateStrategyEvent()
	case "pipeline":
		payload = generatePipelineEvent()
	case "alert":
		payload = generateAlertEvent()
	default:
		payload = generateServiceEvent()
	}

	attributes := map[string]string{"schemaVersion": "2"}
	if legacy {
		payload = toLegacy(payload)
		attributes = map[string]string{"schemaVersion": "1"}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("failed to marshal payload: %v", err)
	}

	return pipeline.Envelope{
		Message: pipeline.Message{
			Data:        data,
			Attributes:  attributes,
			MessageID:   gofakeit.UUID(),
			PublishTime: time.Now().UTC(),
		},
		Subscription: fmt.Sprintf("%s/%s", *subPrefix, subscriptionByKind[kind]),
	}
}

func generateServiceEvent() map[string]interface{} {
	return map[string]interface{}{
		"serviceId":     fmt.Sprintf("svc-%d", rand.Intn(*entities)),
		"status":        pick("healthy", "degraded", "down"),
		"version":       fmt.Sprintf("1.%d.%d", rand.Intn(50), rand.Intn(20)),
		"region":        pick("eu-west-3", "us-east-1", "ap-south-1"),
		"instanceCount": rand.Intn(12) + 1,
	}
}

func generateStrategyEvent() map[string]interface{} {
	now := time.Now().UTC()

	return map[string]interface{}{
		"strategyId":      fmt.Sprintf("strat-%d", rand.Intn(*entities)),
		"mode":            pick("auto", "manual", "shadow"),
		"status":          pick("active", "paused", "halted"),
		"lastDecisionAt":  now.Add(-time.Duration(rand.Intn(300)) * time.Second).Format(time.RFC3339),
		"lastHeartbeatAt": now.Format(time.RFC3339),
	}
}

func generatePipelineEvent() map[string]interface{} {
	now := time.Now().UTC()

	return map[string]interface{}{
		"pipelineId":       fmt.Sprintf("pipe-%d", rand.Intn(*entities)),
		"status":           pick("running", "degraded", "stopped"),
		"lagSeconds":       rand.Float64() * 120,
		"throughputPerMin": float64(rand.Intn(5000)),
		"errorRatePerMin":  rand.Float64() * 5,
		"lastSuccessAt":    now.Add(-time.Duration(rand.Intn(60)) * time.Second).Format(time.RFC3339),
		"lastErrorAt":      now.Add(-time.Duration(rand.Intn(3600)) * time.Second).Format(time.RFC3339),
		"lastEventAt":      now.Format(time.RFC3339),
	}
}

func generateAlertEvent() map[string]interface{} {
	ret := map[string]interface{}{
		"severity":  pick("info", "warning", "critical"),
		"state":     pick("firing", "resolved"),
		"entityRef": fmt.Sprintf("svc-%d", rand.Intn(*entities)),
		"category":  pick("latency", "errors", "saturation", "heartbeat"),
	}

	// Publishers disagree on which identity field they fill in
	switch rand.Intn(3) {
	case 0:
		ret["dedupeKey"] = gofakeit.UUID()
	case 1:
		ret["fingerprint"] = fmt.Sprintf("%016x", rand.Uint64())
	}

	if rand.Float32() < 0.5 {
		ret["firstSeenAt"] = time.Now().UTC().Add(-time.Duration(rand.Intn(86400)) * time.Second).Format(time.RFC3339)
	}

	return ret
}

var legacyNames = map[string]string{
	"serviceId":        "service_id",
	"instanceCount":    "instance_count",
	"lastHeartbeatAt":  "last_heartbeat_at",
	"strategyId":       "strategy_id",
	"lastDecisionAt":   "last_decision_at",
	"pipelineId":       "pipeline_id",
	"lagSeconds":       "lag_seconds",
	"throughputPerMin": "throughput_per_min",
	"errorRatePerMin":  "error_rate_per_min",
	"lastSuccessAt":    "last_success_at",
	"lastErrorAt":      "last_error_at",
	"lastEventAt":      "last_event_at",
	"alertId":          "alert_id",
	"dedupeKey":        "dedupe_key",
	"entityRef":        "entity_ref",
	"firstSeenAt":      "first_seen_at",
	"lastSeenAt":       "last_seen_at",
}

func toLegacy(payload map[string]interface{}) map[string]interface{} {
	ret := make(map[string]interface{}, len(payload)+1)

	for key, value := range payload {
		legacy, found := legacyNames[key]
		if found {
			key = legacy
		}

		ret[key] = value
	}

	ret["schema_version"] = 1

	return ret
}

func pick(values ...string) string {
	return values[rand.Intn(len(values))]
}

func send(client *http.Client, url string, envelope pipeline.Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	return nil
}
