package e2e_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/internal/routing"
	"github.com/opsdash/materializer/test/e2e"
)

var _ = Describe("Checking service heartbeat idempotency", func() {
	var testConfig e2e.TestConfig
	var testContext e2e.TestContext

	var ctx context.Context

	heartbeat := e2e.Message{
		MessageID:   "m-100",
		PublishTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		Attributes:  map[string]string{"schemaVersion": "2"},
		Payload: map[string]interface{}{
			"serviceId":     "svc-1",
			"status":        "healthy",
			"version":       "1.4.2",
			"instanceCount": 3,
		},
	}

	BeforeEach(func() {
		ctx = context.TODO()

		testConfig = e2e.CreateTestConfig("idem-service")
		testContext = e2e.CreateTestContext(testConfig)

		err := testContext.DeployAll(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		// Keep all components if the test failed
		if CurrentSpecReport().Failed() {
			GinkgoLogr.Info("Test failed", "config", testConfig)

			return
		}

		err := testContext.Shutdown(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("having already materialized a service heartbeat", func() {
		var firstDocument map[string]string

		BeforeEach(func() {
			status, err := testContext.PushEvent(ctx, testConfig.ServiceSubscription, heartbeat)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusNoContent))

			Eventually(func(g Gomega, ctx context.Context) {
				doc, err := testContext.GetDocument(ctx, entity.CollectionServices, "svc-1")
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(doc).NotTo(BeEmpty())
				g.Expect(doc["status"]).To(Equal(`"healthy"`))
				g.Expect(doc).To(HaveKey("source"))

				firstDocument = doc
			}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())
		})

		When("the bus redelivers the same message", func() {
			BeforeEach(func() {
				status, err := testContext.PushEvent(ctx, testConfig.ServiceSubscription, heartbeat)
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(http.StatusNoContent))
			})

			It("should settle the duplicate without changing the document", func(ctx SpecContext) {
				By("keeping the document stable")
				Eventually(func(g Gomega, ctx context.Context) {
					doc, err := testContext.GetDocument(ctx, entity.CollectionServices, "svc-1")
					g.Expect(err).NotTo(HaveOccurred())
					g.Expect(doc).To(Equal(firstDocument))
				}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())

				By("counting both deliveries")
				Eventually(func(g Gomega, ctx context.Context) {
					metric, err := testContext.GetMetric(ctx, e2e.DeliveryCountMetricFamily, e2e.KeyValue{Key: "subscription", Value: routing.ShortName(testConfig.ServiceSubscription)})
					g.Expect(err).NotTo(HaveOccurred())

					g.Expect(metric.Counter).NotTo(BeNil())
					g.Expect(metric.Counter.Value).NotTo(BeNil())
					g.Expect(*metric.Counter.Value).To(BeEquivalentTo(2))
				}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())

				By("recording the duplicate as stale")
				Eventually(func(g Gomega, ctx context.Context) {
					metric, err := testContext.GetMetric(ctx, e2e.OutcomeMetricFamily, e2e.KeyValue{Key: "kind", Value: "service"}, e2e.KeyValue{Key: "outcome", Value: "stale"})
					g.Expect(err).NotTo(HaveOccurred())

					g.Expect(metric.Counter).NotTo(BeNil())
					g.Expect(metric.Counter.Value).NotTo(BeNil())
					g.Expect(*metric.Counter.Value).To(BeEquivalentTo(1))
				}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())
			})
		})
	})
})
