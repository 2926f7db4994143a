package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/valkey-io/valkey-go"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/config"
	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/internal/domain/repo/projection"
	"github.com/opsdash/materializer/internal/factory"
	"github.com/opsdash/materializer/internal/processing"
	"github.com/opsdash/materializer/internal/routing"
	"github.com/opsdash/materializer/pkg/pipeline"
)

const (
	valkeyImage = "quay.io/sclorg/valkey-7-c10s:bf91acf0827dc5db216164aafe3d34beb245dcec"

	maxSizeName = 12
)

// Metric families exposed by the deployed materializer.
const (
	DeliveryCountMetricFamily = "main_delivery_total"
	OutcomeMetricFamily       = "main_projection_outcome_total"
	LagMetricFamily           = "main_delivery_lag_seconds"
	ErrorMetricFamily         = "error_delivery_error_total"
)

type TestConfig struct {
	ServiceTopic         string
	ServiceSubscription  string
	StrategySubscription string
	PipelineSubscription string
	AlertSubscription    string
}

// TestContext runs the materializer in process against a dedicated valkey
// instance: push handler behind an httptest server, metrics on a private
// registry.
type TestContext struct {
	Config TestConfig

	valkeyContainer testcontainers.Container
	valkeyClient    valkey.Client
	closeStore      common.CloseFunc

	registry *prometheus.Registry
	server   *httptest.Server

	httpClient *http.Client
}

var random *rand.Rand

func init() {
	now := time.Now()

	random = rand.New(rand.NewSource(now.UnixMilli()))
}

func CreateTestConfig(test string) TestConfig {
	prefix := test
	if len(test) > maxSizeName {
		prefix = test[:maxSizeName]
	}

	name := fmt.Sprintf("%s-%x", prefix, random.Int31())

	return TestConfig{
		ServiceTopic:         fmt.Sprintf("projects/e2e/topics/%s-service-health", name),
		ServiceSubscription:  fmt.Sprintf("projects/e2e/subscriptions/%s-service-health", name),
		StrategySubscription: fmt.Sprintf("projects/e2e/subscriptions/%s-strategy-state", name),
		PipelineSubscription: fmt.Sprintf("projects/e2e/subscriptions/%s-pipeline-stats", name),
		AlertSubscription:    fmt.Sprintf("projects/e2e/subscriptions/%s-alert-events", name),
	}
}

func CreateTestContext(conf TestConfig) TestContext {
	return TestContext{
		Config: conf,

		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Generic func

func (tc *TestContext) DeployAll(ctx context.Context) error {
	err := tc.DeployValkey(ctx)
	if err != nil {
		return fmt.Errorf("failed to deploy valkey: %w", err)
	}

	err = tc.DeployMaterializer(ctx)
	if err != nil {
		return fmt.Errorf("failed to deploy materializer: %w", err)
	}

	return nil
}

func (tc *TestContext) Shutdown(ctx context.Context) error {
	if tc.server != nil {
		tc.server.Close()
	}

	if tc.closeStore != nil {
		err := tc.closeStore(ctx)
		if err != nil {
			return fmt.Errorf("failed to close valkey client: %w", err)
		}
	}

	if tc.valkeyContainer != nil {
		err := tc.valkeyContainer.Terminate(ctx)
		if err != nil {
			return fmt.Errorf("failed to terminate valkey: %w", err)
		}
	}

	return nil
}

// Valkey func

func (tc *TestContext) DeployValkey(ctx context.Context) error {
	req := testcontainers.ContainerRequest{
		Image:        valkeyImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("failed to start valkey: %w", err)
	}

	tc.valkeyContainer = container

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to get valkey endpoint: %w", err)
	}

	client, closeStore, err := factory.CreateValkeyClient(ctx, config.Valkey{URL: endpoint})
	if err != nil {
		return fmt.Errorf("failed to create valkey client: %w", err)
	}

	tc.valkeyClient = client
	tc.closeStore = closeStore

	return nil
}

// Materializer func

func (tc *TestContext) DeployMaterializer(ctx context.Context) error {
	routes, err := routing.NewTable([]routing.Route{
		{Subscription: tc.Config.ServiceSubscription, Kind: "service", Topic: tc.Config.ServiceTopic},
		{Subscription: tc.Config.StrategySubscription, Kind: "strategy"},
		{Subscription: tc.Config.PipelineSubscription, Kind: "pipeline"},
		{Subscription: tc.Config.AlertSubscription, Kind: "alert"},
	})
	if err != nil {
		return fmt.Errorf("failed to create routing table: %w", err)
	}

	registry := prometheus.NewRegistry()
	tc.registry = registry

	writer := projection.NewValkeyRepo(tc.valkeyClient, 5*time.Second)

	mainProcessing, err := processing.NewMain(routes, writer, registry, pipeline.MetricsConfig{Namespace: "main"})
	if err != nil {
		return fmt.Errorf("failed to create main processing: %w", err)
	}

	decorated, err := factory.DecorateProcessing(mainProcessing, routes, registry)
	if err != nil {
		return fmt.Errorf("failed to decorate processing: %w", err)
	}

	errorProcessing, err := factory.DecorateErrorProcessing(processing.NoopError{}, registry)
	if err != nil {
		return fmt.Errorf("failed to decorate error processing: %w", err)
	}

	pushHandler := pipeline.NewPushHandler[map[string]interface{}](decorated, errorProcessing)

	server := factory.CreatePushServer(config.Server{}, pushHandler)
	tc.server = httptest.NewServer(server.Handler)

	return nil
}

func (tc *TestContext) ServerURL() string {
	return tc.server.URL
}

// Push func

type Message struct {
	MessageID   string
	PublishTime time.Time
	Attributes  map[string]string
	Payload     map[string]interface{}
}

func (tc *TestContext) PushEvent(ctx context.Context, subscription string, msg Message) (int, error) {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	envelope := pipeline.Envelope{
		Message: pipeline.Message{
			Data:        data,
			Attributes:  msg.Attributes,
			MessageID:   msg.MessageID,
			PublishTime: msg.PublishTime,
		},
		Subscription: subscription,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return tc.PushRaw(ctx, body)
}

func (tc *TestContext) PushRaw(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.server.URL+"/push", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to push delivery: %w", err)
	}

	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// Document func

func (tc *TestContext) GetDocument(ctx context.Context, collection entity.Collection, documentID string) (map[string]string, error) {
	command := tc.valkeyClient.B().Hgetall().Key(projection.DocumentKey(collection, documentID)).Build()

	ret, err := tc.valkeyClient.Do(ctx, command).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	return ret, nil
}

// Metrics func

type KeyValue struct {
	Key   string
	Value string
}

func (tc *TestContext) GetMetric(_ context.Context, family string, keyValues ...KeyValue) (*dto.Metric, error) {
	families, err := tc.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, metricFamily := range families {
		if metricFamily.GetName() != family {
			continue
		}

		for _, metric := range metricFamily.GetMetric() {
			if matchLabels(metric, keyValues) {
				return metric, nil
			}
		}
	}

	return nil, fmt.Errorf("no metric %s matching %v", family, keyValues)
}

func matchLabels(metric *dto.Metric, keyValues []KeyValue) bool {
	for _, kv := range keyValues {
		found := false

		for _, label := range metric.GetLabel() {
			if label.GetName() == kv.Key && label.GetValue() == kv.Value {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}
