package e2e_test

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsdash/materializer/pkg/pipeline"
	"github.com/opsdash/materializer/test/e2e"
)

var _ = Describe("Checking malformed push frames", func() {
	var testConfig e2e.TestConfig
	var testContext e2e.TestContext

	var ctx context.Context

	BeforeEach(func() {
		ctx = context.TODO()

		testConfig = e2e.CreateTestConfig("bad-frame")
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

	When("pushing a body that is not json", func() {
		It("should answer bad request", func() {
			status, err := testContext.PushRaw(ctx, []byte("not even json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	When("pushing a frame without subscription", func() {
		It("should answer bad request", func() {
			envelope := pipeline.Envelope{
				Message: pipeline.Message{
					Data:        []byte(`{"serviceId":"svc-1"}`),
					MessageID:   "m-1",
					PublishTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				},
			}

			body, err := json.Marshal(envelope)
			Expect(err).NotTo(HaveOccurred())

			status, err := testContext.PushRaw(ctx, body)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	When("pushing a valid frame whose payload is not a json object", func() {
		BeforeEach(func() {
			envelope := pipeline.Envelope{
				Message: pipeline.Message{
					Data:        []byte("definitely not json"),
					MessageID:   "m-1",
					PublishTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				},
				Subscription: testConfig.ServiceSubscription,
			}

			body, err := json.Marshal(envelope)
			Expect(err).NotTo(HaveOccurred())

			status, err := testContext.PushRaw(ctx, body)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusServiceUnavailable))
		})

		It("should report the failure", func(ctx SpecContext) {
			By("eventually incrementing the error metrics")
			Eventually(func(g Gomega, ctx context.Context) {
				metric, err := testContext.GetMetric(ctx, e2e.ErrorMetricFamily, e2e.KeyValue{Key: "category", Value: "unmarshal"})
				g.Expect(err).NotTo(HaveOccurred())

				g.Expect(metric.Counter).NotTo(BeNil())
				g.Expect(metric.Counter.Value).NotTo(BeNil())
				g.Expect(*metric.Counter.Value).To(BeEquivalentTo(1))
			}).WithContext(ctx).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())
		})
	})
})
