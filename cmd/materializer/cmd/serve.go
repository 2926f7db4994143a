package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/config"
	"github.com/opsdash/materializer/internal/factory"
	"github.com/opsdash/materializer/internal/log"
	"github.com/opsdash/materializer/internal/processing"
	"github.com/opsdash/materializer/internal/routing"
	"github.com/opsdash/materializer/pkg/pipeline"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the push endpoint and materialize deliveries into the projection store",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.Parse(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to parse config %s: %w", cfgFile, err)
		}

		// Init logger
		err = log.Init(conf.Logs)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		logger := log.Logger()

		// Dump generic information
		logger.Info("Starting materializer",
			"version", version.Info(),
			"buildContext", version.BuildContext(),
		)
		logger.Info("Using config", "config", fmt.Sprintf("%+v", conf))

		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.Logger()

		// Set max procs based on cpu limits
		err := common.SetMaxProcs()
		if err != nil {
			logger.Error(err, "failed to set max procs")

			return
		}

		// Set max memory
		err = common.SetMemLimit()
		if err != nil {
			logger.Error(err, "failed to set mem limit")

			return
		}

		// Listen to sigterm and interrupt signals
		ctx := common.SetupSignalHandler(context.Background())

		conf := config.Get()

		// Build the routing table
		routes, err := routing.NewTable(routesFromConfig(conf.Routing))
		if err != nil {
			logger.Error(err, "failed to build routing table")

			return
		}

		registry := prometheus.NewRegistry()

		// Create the projection store
		projectionWriter, closeStore, err := factory.CreateProjectionWriter(ctx, conf.Store)
		if err != nil {
			logger.Error(err, "failed to create projection store")

			return
		}

		defer func() {
			closeErr := closeStore(context.Background())
			if closeErr != nil {
				logger.Error(closeErr, "failed to close projection store")
			}
		}()

		// Create the main processing
		main, err := processing.NewMain(routes, projectionWriter, registry, pipeline.MetricsConfig{Namespace: "main"})
		if err != nil {
			logger.Error(err, "failed to create main processing")

			return
		}

		mainProcessing, err := factory.DecorateProcessing(main, routes, registry)
		if err != nil {
			logger.Error(err, "failed to decorate main processing")

			return
		}

		// Create the error processing
		mainError, err := factory.CreateMainErrorProcessing(ctx, conf.FailureArchive)
		if err != nil {
			logger.Error(err, "failed to create error processing")

			return
		}

		errorProcessing, err := factory.DecorateErrorProcessing(mainError, registry)
		if err != nil {
			logger.Error(err, "failed to decorate error processing")

			return
		}

		// Create servers
		handler := pipeline.NewPushHandler[map[string]interface{}](mainProcessing, errorProcessing).
			WithLogger(logger).
			WithMaxBodyBytes(conf.Server.MaxBodyBytes)

		pushServer := factory.CreatePushServer(conf.Server, handler)
		metricsServer := factory.CreatePrometheusServer(conf.Metrics, registry)

		// Run until signaled, then drain
		group, groupCtx := errgroup.WithContext(ctx)

		group.Go(func() error {
			logger.Info("Serving push endpoint", "addr", pushServer.Addr)

			serveErr := pushServer.ListenAndServe()
			if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				return fmt.Errorf("push server failed: %w", serveErr)
			}

			return nil
		})

		group.Go(func() error {
			logger.Info("Serving metrics", "addr", metricsServer.Addr)

			serveErr := metricsServer.ListenAndServe()
			if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", serveErr)
			}

			return nil
		})

		group.Go(func() error {
			<-groupCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.GracefulDuration)
			defer cancel()

			shutdownErr := pushServer.Shutdown(shutdownCtx)
			if shutdownErr != nil {
				logger.Error(shutdownErr, "failed to drain push server")
			}

			shutdownErr = metricsServer.Shutdown(shutdownCtx)
			if shutdownErr != nil {
				logger.Error(shutdownErr, "failed to drain metrics server")
			}

			return nil
		})

		err = group.Wait()
		if err != nil {
			logger.Error(err, "server group failed")
		}

		logger.V(2).Info("Processing stopped")
	},
}

func routesFromConfig(routes []config.Route) []routing.Route {
	ret := make([]routing.Route, 0, len(routes))

	for _, route := range routes {
		ret = append(ret, routing.Route{
			Subscription: route.Subscription,
			Kind:         route.Kind,
			Topic:        route.Topic,
		})
	}

	return ret
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
