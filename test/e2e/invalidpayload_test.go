package e2e_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/test/e2e"
)

var _ = Describe("Checking invalid payload handling", func() {
	var testConfig e2e.TestConfig
	var testContext e2e.TestContext

	var ctx context.Context

	BeforeEach(func() {
		ctx = context.TODO()

		testConfig = e2e.CreateTestConfig("bad-payload")
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

	When("pushing a service event without serviceId", func() {
		BeforeEach(func() {
			msg := e2e.Message{
				MessageID:   "m-1",
				PublishTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				Attributes:  map[string]string{"schemaVersion": "2"},
				Payload: map[string]interface{}{
					"status": "healthy",
				},
			}

			status, err := testContext.PushEvent(ctx, testConfig.ServiceSubscription, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusInternalServerError))
		})

		It("should report the failure and write nothing", func(ctx SpecContext) {
			By("eventually incrementing the error metrics")
			Eventually(func(g Gomega, ctx context.Context) {
				metric, err := testContext.GetMetric(ctx, e2e.ErrorMetricFamily, e2e.KeyValue{Key: "category", Value: "invalid_service_event"})
				g.Expect(err).NotTo(HaveOccurred())

				g.Expect(metric.Counter).NotTo(BeNil())
				g.Expect(metric.Counter.Value).NotTo(BeNil())
				g.Expect(*metric.Counter.Value).To(BeEquivalentTo(1))
			}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())

			By("leaving the collection untouched")
			doc, err := testContext.GetDocument(ctx, entity.CollectionServices, "svc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc).To(BeEmpty())
		})
	})

	When("pushing to a subscription without routing entry", func() {
		BeforeEach(func() {
			msg := e2e.Message{
				MessageID:   "m-2",
				PublishTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				Attributes:  map[string]string{"schemaVersion": "2"},
				Payload: map[string]interface{}{
					"serviceId": "svc-1",
				},
			}

			status, err := testContext.PushEvent(ctx, "projects/e2e/subscriptions/never-configured", msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusInternalServerError))
		})

		It("should report the routing miss", func(ctx SpecContext) {
			Eventually(func(g Gomega, ctx context.Context) {
				metric, err := testContext.GetMetric(ctx, e2e.ErrorMetricFamily, e2e.KeyValue{Key: "category", Value: "routing_miss"})
				g.Expect(err).NotTo(HaveOccurred())

				g.Expect(metric.Counter).NotTo(BeNil())
				g.Expect(metric.Counter.Value).NotTo(BeNil())
				g.Expect(*metric.Counter.Value).To(BeEquivalentTo(1))
			}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())
		})
	})
})
