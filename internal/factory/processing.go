package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opsdash/materializer/internal/config"
	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/internal/domain/repo/failurearchive"
	"github.com/opsdash/materializer/internal/processing"
	"github.com/opsdash/materializer/internal/routing"
	"github.com/opsdash/materializer/pkg/pipeline"
)

// CreateMainErrorProcessing archives failures to s3 when a bucket is
// configured and degrades to metrics only otherwise.
func CreateMainErrorProcessing(ctx context.Context, conf config.S3) (pipeline.ErrorProcessing, error) {
	if conf.Bucket == "" {
		return processing.NoopError{}, nil
	}

	s3Client, err := CreateS3Client(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	archive := failurearchive.NewS3Writer(s3Client, conf.Bucket, conf.KeyPrefix)

	return processing.NewMainError(archive), nil
}

/*
 * DecorateProcessing decorates the processing as follow:
 *
 * panic --> duration --> count --> lag --> main (route + normalize + project)
 *
 * No retry here: retryable failures answer 503 and the bus redelivers.
 */
func DecorateProcessing(mainProcessing pipeline.Processing[entity.Event], routes *routing.Table, registry prometheus.Registerer) (pipeline.Processing[entity.Event], error) {
	ret := mainProcessing

	ret, err := processing.NewCountDeliveryLag(ret, routes, registry, clockwork.NewRealClock(), pipeline.MetricsConfig{Namespace: "main"})
	if err != nil {
		return nil, fmt.Errorf("failed to create lag processor: %w", err)
	}

	ret, err = processing.NewCountDeliveries(ret, registry, pipeline.MetricsConfig{Namespace: "main"})
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery counter: %w", err)
	}

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clockwork.NewRealClock(), pipeline.MetricsConfig{Namespace: "main"})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}

/*
 * DecorateErrorProcessing decorates the error processing as follow:
 *
 *										---> retry --> main (s3 archive)
 *	panic --> duration --> parallel ---|
 *										---> error count
 */
func DecorateErrorProcessing(mainProcessing pipeline.ErrorProcessing, registry prometheus.Registerer) (pipeline.ErrorProcessing, error) {
	ret := mainProcessing

	ret = pipeline.NewRetryProcessing(ret, pipeline.RetryConfig{MaxAttempt: 3, Delay: 100 * time.Millisecond})

	errorCount, err := pipeline.NewErrorCountProcessing(registry, pipeline.MetricsConfig{Namespace: "error"})
	if err != nil {
		return nil, fmt.Errorf("failed to create error count processing: %w", err)
	}

	ret = pipeline.NewParallelProcessing(ret, errorCount)

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clockwork.NewRealClock(), pipeline.MetricsConfig{Namespace: "error"})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}
