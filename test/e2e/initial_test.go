package e2e_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsdash/materializer/test/e2e"
)

var _ = Describe("Checking materializer startup", func() {
	var testConfig e2e.TestConfig
	var testContext e2e.TestContext

	var ctx context.Context

	BeforeEach(func() {
		ctx = context.TODO()

		testConfig = e2e.CreateTestConfig("initial")
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

	When("the materializer is running", func() {
		It("should answer liveness and readiness probes", func() {
			for _, path := range []string{"/healthz", "/readyz"} {
				resp, err := http.Get(testContext.ServerURL() + path)
				Expect(err).NotTo(HaveOccurred())

				resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			}
		})

		It("should reject non POST methods on the push endpoint", func() {
			resp, err := http.Get(testContext.ServerURL() + "/push")
			Expect(err).NotTo(HaveOccurred())

			resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		})
	})
})
