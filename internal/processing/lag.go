package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/internal/routing"
	"github.com/opsdash/materializer/pkg/pipeline"
)

var defaultLagBuckets = []float64{1, 5, 15, 60, 300, 900, 3600}

type CountDeliveryLag struct {
	histogram *prometheus.HistogramVec
	routes    *routing.Table
	clock     clockwork.Clock
	inner     pipeline.Processing[entity.Event]
}

func NewCountDeliveryLag(p pipeline.Processing[entity.Event], routes *routing.Table, registry prometheus.Registerer, clock clockwork.Clock, config pipeline.MetricsConfig) (pipeline.Processing[entity.Event], error) {
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "delivery_lag_seconds",
		Help:      "Lag between bus publish and processing, by kind.",
		Buckets:   defaultLagBuckets,
	}, []string{"kind"})

	err := registry.Register(histogram)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := CountDeliveryLag{
		histogram: histogram,
		routes:    routes,
		clock:     clock,
		inner:     p,
	}

	return ret, nil
}

func (p CountDeliveryLag) Process(ctx context.Context, event entity.Event) error {
	err := p.inner.Process(ctx, event)
	if err != nil {
		return err // Observe only successfully processed deliveries
	}

	route, found := p.routes.Resolve(event.Subscription)
	if !found {
		return nil
	}

	p.histogram.WithLabelValues(string(route.Kind)).Observe(p.computeLag(event).Seconds())

	return nil
}

// computeLag clamps to zero when publisher clocks run ahead of ours.
func (p CountDeliveryLag) computeLag(event entity.Event) time.Duration {
	lag := p.clock.Now().Sub(event.PublishTime)
	if lag < 0 {
		return 0
	}

	return lag
}
