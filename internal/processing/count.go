package processing

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/internal/routing"
	"github.com/opsdash/materializer/pkg/pipeline"
)

type CountDeliveries struct {
	counter *prometheus.CounterVec
	inner   pipeline.Processing[entity.Event]
}

func NewCountDeliveries(p pipeline.Processing[entity.Event], registry prometheus.Registerer, config pipeline.MetricsConfig) (pipeline.Processing[entity.Event], error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "delivery_total",
		Help:      "Delivery counter by subscription.",
	}, []string{"subscription"})

	err := registry.Register(counter)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := CountDeliveries{
		counter: counter,
		inner:   p,
	}

	return ret, nil
}

func (p CountDeliveries) Process(ctx context.Context, event entity.Event) error {
	defer p.counter.WithLabelValues(routing.ShortName(event.Subscription)).Inc()

	return p.inner.Process(ctx, event)
}
