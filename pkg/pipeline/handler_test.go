package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/opsdash/materializer/pkg/pipeline"
	"github.com/opsdash/materializer/pkg/pipeline/mock"
)

type rawPayload = map[string]any

func postPush(handler http.Handler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/push", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func encodeEnvelope(envelope pipeline.Envelope) []byte {
	ret, err := json.Marshal(envelope)
	Expect(err).NotTo(HaveOccurred())

	return ret
}

var _ = Describe("Testing PushHandler", func() {
	var ctrl *gomock.Controller

	var proc *mock.MockProcessing[pipeline.Delivery[rawPayload]]
	var errProc *mock.MockErrorProcessing

	var handler http.Handler

	publishTime := time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)

	validEnvelope := pipeline.Envelope{
		Message: pipeline.Message{
			Data:        []byte(`{"serviceId":"svc-1","status":"healthy"}`),
			Attributes:  map[string]string{"schemaVersion": "2"},
			MessageID:   "msg-42",
			PublishTime: publishTime,
		},
		Subscription: "projects/demo/subscriptions/service-health",
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())

		proc = mock.NewMockProcessing[pipeline.Delivery[rawPayload]](ctrl)
		errProc = mock.NewMockErrorProcessing(ctrl)

		handler = pipeline.NewPushHandler[rawPayload](proc, errProc).WithLogger(logr.Discard())
	})

	When("a valid envelope is posted and processing succeeds", func() {
		var captured pipeline.Delivery[rawPayload]

		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, d pipeline.Delivery[rawPayload]) error {
					captured = d

					return nil
				}).Times(1)
		})

		It("should answer 204 and hand the decoded delivery to the processing", func() {
			rec := postPush(handler, encodeEnvelope(validEnvelope))

			Expect(rec.Code).To(Equal(http.StatusNoContent))

			Expect(captured.Subscription).To(Equal("projects/demo/subscriptions/service-health"))
			Expect(captured.MessageID).To(Equal("msg-42"))
			Expect(captured.PublishTime).To(BeTemporally("==", publishTime))
			Expect(captured.Attributes).To(HaveKeyWithValue("schemaVersion", "2"))
			Expect(captured.Payload).To(HaveKeyWithValue("serviceId", "svc-1"))
			Expect(captured.Payload).To(HaveKeyWithValue("status", "healthy"))
		})
	})

	When("the handler is configured with a non positive body limit", func() {
		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(nil).Times(1)

			handler = pipeline.NewPushHandler[rawPayload](proc, errProc).
				WithLogger(logr.Discard()).
				WithMaxBodyBytes(0)
		})

		It("should fall back to the default limit and keep accepting deliveries", func() {
			rec := postPush(handler, encodeEnvelope(validEnvelope))

			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})
	})

	When("the request is not a POST", func() {
		It("should answer 405 without touching the pipeline", func() {
			req := httptest.NewRequest(http.MethodGet, "/push", nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	When("the body is not a JSON push frame", func() {
		It("should answer 400", func() {
			rec := postPush(handler, []byte("definitely not json"))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	When("the frame misses required fields", func() {
		It("should answer 400 on missing messageId", func() {
			envelope := validEnvelope
			envelope.Message.MessageID = ""

			rec := postPush(handler, encodeEnvelope(envelope))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should answer 400 on missing subscription", func() {
			envelope := validEnvelope
			envelope.Subscription = ""

			rec := postPush(handler, encodeEnvelope(envelope))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should answer 400 on missing publishTime", func() {
			envelope := validEnvelope
			envelope.Message.PublishTime = time.Time{}

			rec := postPush(handler, encodeEnvelope(envelope))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	When("the payload bytes do not decode as JSON", func() {
		var captured pipeline.ErrProcessingError

		BeforeEach(func() {
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, e pipeline.ErrProcessingError) error {
					captured = e

					return nil
				}).Times(1)
		})

		It("should answer 503 and run the error pipeline with the delivery context", func() {
			envelope := validEnvelope
			envelope.Message.Data = []byte("not a json object")

			rec := postPush(handler, encodeEnvelope(envelope))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

			Expect(captured.Category).To(Equal(pipeline.UnmarshalErrorCategory))
			Expect(captured.Delivery).NotTo(BeNil())
			Expect(captured.Delivery.MessageID).To(Equal("msg-42"))
			Expect(captured.Delivery.Payload).To(Equal([]byte("not a json object")))
		})
	})

	When("the processing fails with a retryable error", func() {
		BeforeEach(func() {
			processingError := pipeline.NewRetryableErrProcessingError(errOneError, "projection_store", nil)

			proc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(processingError).Times(1)
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(nil).Times(1)
		})

		It("should answer 503 so the bus redelivers", func() {
			rec := postPush(handler, encodeEnvelope(validEnvelope))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	When("the processing fails with a terminal error", func() {
		var captured pipeline.ErrProcessingError

		BeforeEach(func() {
			processingError := pipeline.NewErrProcessingError(errOneError, "routing_miss", nil)

			proc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(processingError).Times(1)
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, e pipeline.ErrProcessingError) error {
					captured = e

					return nil
				}).Times(1)
		})

		It("should answer 500 and attach the delivery context to the error", func() {
			rec := postPush(handler, encodeEnvelope(validEnvelope))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))

			response := map[string]string{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &response)).To(Succeed())
			Expect(response).To(HaveKeyWithValue("error", "routing_miss"))

			Expect(captured.Delivery).NotTo(BeNil())
			Expect(captured.Delivery.Subscription).To(Equal("projects/demo/subscriptions/service-health"))
		})
	})

	When("the processing fails with a generic error", func() {
		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(errOneError).Times(1)
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(nil).Times(1)
		})

		It("should answer 500 with the unknown category", func() {
			rec := postPush(handler, encodeEnvelope(validEnvelope))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))

			response := map[string]string{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &response)).To(Succeed())
			Expect(response).To(HaveKeyWithValue("error", pipeline.UnknownCategory))
		})
	})

	When("the error pipeline fails as well", func() {
		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(errOneError).Times(1)
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(errOneError).Times(1)
		})

		It("should still answer 500", func() {
			rec := postPush(handler, encodeEnvelope(validEnvelope))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
