package e2e_test

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsdash/materializer/internal/domain/entity"
	"github.com/opsdash/materializer/test/e2e"
)

var _ = Describe("Checking implicit alert identity", func() {
	var testConfig e2e.TestConfig
	var testContext e2e.TestContext

	var ctx context.Context

	// Neither delivery carries dedupeKey, fingerprint or alertId: both must
	// land on the document derived from entityRef and category.
	documentID := fmt.Sprintf("%x", md5.Sum([]byte("svc-9/latency")))

	firstEvent := e2e.Message{
		MessageID:   "a-1",
		PublishTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		Attributes:  map[string]string{"schemaVersion": "2"},
		Payload: map[string]interface{}{
			"entityRef": "svc-9",
			"category":  "latency",
			"severity":  "warning",
			"state":     "firing",
		},
	}

	secondEvent := e2e.Message{
		MessageID:   "a-2",
		PublishTime: time.Date(2025, 6, 2, 10, 10, 0, 0, time.UTC),
		Attributes:  map[string]string{"schemaVersion": "2"},
		Payload: map[string]interface{}{
			"entityRef": "svc-9",
			"category":  "latency",
			"severity":  "critical",
			"state":     "firing",
		},
	}

	BeforeEach(func() {
		ctx = context.TODO()

		testConfig = e2e.CreateTestConfig("alert-ident")
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

	Context("having materialized an alert without explicit identity", func() {
		BeforeEach(func() {
			status, err := testContext.PushEvent(ctx, testConfig.AlertSubscription, firstEvent)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusNoContent))

			Eventually(func(g Gomega, ctx context.Context) {
				doc, err := testContext.GetDocument(ctx, entity.CollectionAlerts, documentID)
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(doc["severity"]).To(Equal(`"warning"`))
				g.Expect(doc["firstSeenAt"]).To(Equal(`"2025-06-02T10:00:00Z"`))
			}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())
		})

		When("a later event for the same entity and category arrives", func() {
			BeforeEach(func() {
				status, err := testContext.PushEvent(ctx, testConfig.AlertSubscription, secondEvent)
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(http.StatusNoContent))
			})

			It("should update the same document and keep the first seen time", func(ctx SpecContext) {
				By("applying the update")
				Eventually(func(g Gomega, ctx context.Context) {
					metric, err := testContext.GetMetric(ctx, e2e.OutcomeMetricFamily, e2e.KeyValue{Key: "kind", Value: "alert"}, e2e.KeyValue{Key: "outcome", Value: "applied"})
					g.Expect(err).NotTo(HaveOccurred())

					g.Expect(metric.Counter).NotTo(BeNil())
					g.Expect(metric.Counter.Value).NotTo(BeNil())
					g.Expect(*metric.Counter.Value).To(BeEquivalentTo(1))
				}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())

				By("materializing both deliveries into a single document")
				Eventually(func(g Gomega, ctx context.Context) {
					doc, err := testContext.GetDocument(ctx, entity.CollectionAlerts, documentID)
					g.Expect(err).NotTo(HaveOccurred())
					g.Expect(doc["severity"]).To(Equal(`"critical"`))
					g.Expect(doc["lastSeenAt"]).To(Equal(`"2025-06-02T10:10:00Z"`))
					g.Expect(doc["firstSeenAt"]).To(Equal(`"2025-06-02T10:00:00Z"`))
				}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())
			})
		})
	})
})
