package entity

import (
	"fmt"
	"time"

	"github.com/opsdash/materializer/pkg/pipeline"
)

// Event is a push delivery once the payload bytes are decoded: the raw
// payload object plus the delivery metadata used for routing and ordering.
type Event = pipeline.Delivery[map[string]interface{}]

// Kind identifies which projection family a subscription feeds.
type Kind string

const (
	KindService  Kind = "service"
	KindStrategy Kind = "strategy"
	KindPipeline Kind = "pipeline"
	KindAlert    Kind = "alert"
)

func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindService, KindStrategy, KindPipeline, KindAlert:
		return Kind(value), nil
	default:
		return "", fmt.Errorf("unknown kind %q", value)
	}
}

// Collection names the store collection holding one projection family.
type Collection string

const (
	CollectionServices   Collection = "services"
	CollectionStrategies Collection = "strategies"
	CollectionPipelines  Collection = "pipelines"
	CollectionAlerts     Collection = "alerts"
)

// ProjectionUpdate is a token-gated merge against a single document.
//
// Set fields are merged on every accepted write. SetOnCreate fields are only
// merged when the write creates the document. Fields absent from both maps
// are left untouched, documents are never replaced wholesale.
type ProjectionUpdate struct {
	Collection  Collection
	DocumentID  string
	Token       time.Time
	Set         map[string]interface{}
	SetOnCreate map[string]interface{}
}

// Outcome reports what a projection write did.
type Outcome string

const (
	// OutcomeCreated: no prior document, the update created it.
	OutcomeCreated Outcome = "created"
	// OutcomeApplied: the token was strictly newer, the merge was applied.
	OutcomeApplied Outcome = "applied"
	// OutcomeStale: the stored token was equal or newer, nothing was written.
	OutcomeStale Outcome = "stale"
)
