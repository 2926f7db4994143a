package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/internal/domain/repo"
	"github.com/opsdash/materializer/internal/log"
	"github.com/opsdash/materializer/internal/routing"
	"github.com/opsdash/materializer/pkg/pipeline"
)

var (
	errUnknownSubscription = errors.New("no routing entry for subscription")
	errUnknownKind         = errors.New("unknown routing kind")
	errNoOrderingToken     = errors.New("no usable ordering timestamp")
)

const categoryErrRoutingMiss = "routing_miss"

type Main struct {
	routes           *routing.Table
	projectionWriter repo.ProjectionWriter
	outcomes         *prometheus.CounterVec
}

func NewMain(routes *routing.Table, projectionWriter repo.ProjectionWriter, registry prometheus.Registerer, config pipeline.MetricsConfig) (Main, error) {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "projection_outcome_total",
		Help:      "Projection outcomes by kind.",
	}, []string{"kind", "outcome"})

	err := registry.Register(outcomes)
	if err != nil {
		return Main{}, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := Main{
		routes:           routes,
		projectionWriter: projectionWriter,
		outcomes:         outcomes,
	}

	return ret, nil
}

func (m Main) Process(ctx context.Context, event entity.Event) error {
	route, found := m.routes.Resolve(event.Subscription)
	if !found {
		return common.NewErrProcessingError(errUnknownSubscription, categoryErrRoutingMiss, nil, "subscription %q", event.Subscription)
	}

	record := Canonical(event.Payload, event.Attributes)

	switch route.Kind {
	case entity.KindService:
		return m.processServiceEvent(ctx, route, record, event)
	case entity.KindStrategy:
		return m.processStrategyEvent(ctx, record, event)
	case entity.KindPipeline:
		return m.processPipelineEvent(ctx, record, event)
	case entity.KindAlert:
		return m.processAlertEvent(ctx, record, event)
	default:
		return pipeline.NewErrProcessingError(errUnknownKind, categoryErrRoutingMiss, nil)
	}
}

func (m Main) applyProjection(ctx context.Context, kind entity.Kind, update entity.ProjectionUpdate) error {
	outcome, err := m.projectionWriter.ApplyProjection(ctx, update)
	if err != nil {
		return fmt.Errorf("failed to apply projection: %w", err)
	}

	m.outcomes.WithLabelValues(string(kind), string(outcome)).Inc()

	if outcome == entity.OutcomeStale {
		log.Logger().V(3).Info("Skipped stale delivery", "kind", kind, "documentId", update.DocumentID, "token", update.Token)
	}

	return nil
}

// rejectStale drops a delivery whose ordering timestamps are all absent or
// unparseable. Treating those as older than anything stored keeps a
// malformed retry from clobbering a good document.
func (m Main) rejectStale(kind entity.Kind, documentID string, event entity.Event) error {
	log.Logger().Error(errNoOrderingToken, "Skipped delivery", "kind", kind, "documentId", documentID, "subscription", event.Subscription, "messageId", event.MessageID)

	m.outcomes.WithLabelValues(string(kind), string(entity.OutcomeStale)).Inc()

	return nil
}
