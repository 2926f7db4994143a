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

var _ = Describe("Checking legacy schema normalization", func() {
	var testConfig e2e.TestConfig
	var testContext e2e.TestContext

	var ctx context.Context

	publishTime := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	legacyHeartbeat := e2e.Message{
		MessageID:   "m-v1",
		PublishTime: publishTime,
		Attributes:  map[string]string{"schemaVersion": "1"},
		Payload: map[string]interface{}{
			"service_id":     "svc-legacy",
			"status":         "healthy",
			"version":        "2.0.1",
			"region":         "eu-west-1",
			"instance_count": 4,
		},
	}

	canonicalHeartbeat := e2e.Message{
		MessageID:   "m-v2",
		PublishTime: publishTime,
		Attributes:  map[string]string{"schemaVersion": "2"},
		Payload: map[string]interface{}{
			"serviceId":     "svc-canonical",
			"status":        "healthy",
			"version":       "2.0.1",
			"region":        "eu-west-1",
			"instanceCount": 4,
		},
	}

	BeforeEach(func() {
		ctx = context.TODO()

		testConfig = e2e.CreateTestConfig("legacy")
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

	When("pushing the same heartbeat in legacy and canonical form", func() {
		BeforeEach(func() {
			for _, msg := range []e2e.Message{legacyHeartbeat, canonicalHeartbeat} {
				status, err := testContext.PushEvent(ctx, testConfig.ServiceSubscription, msg)
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(http.StatusNoContent))
			}
		})

		It("should materialize field identical documents", func(ctx SpecContext) {
			Eventually(func(g Gomega, ctx context.Context) {
				legacyDoc, err := testContext.GetDocument(ctx, entity.CollectionServices, "svc-legacy")
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(legacyDoc).NotTo(BeEmpty())

				canonicalDoc, err := testContext.GetDocument(ctx, entity.CollectionServices, "svc-canonical")
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(canonicalDoc).NotTo(BeEmpty())

				for _, field := range []string{"status", "version", "region", "instanceCount", "lastHeartbeatAt"} {
					g.Expect(legacyDoc[field]).To(Equal(canonicalDoc[field]), "field %s must normalize identically", field)
				}
			}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())
		})
	})
})
