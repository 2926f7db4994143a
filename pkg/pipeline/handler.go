package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-logr/logr"
)

const defaultMaxBodyBytes = 1 << 20

// PushHandler terminates the bus push endpoint: it decodes the push frame,
// unmarshals the payload and hands the delivery to the processing chain.
//
// Response contract: 2xx tells the bus the delivery is settled, including
// stale no-ops. Retryable failures answer 503 so the bus redelivers,
// terminal failures answer 500 after the error pipeline ran.

type PushHandler[Payload any] struct {
	logger *logr.Logger

	processing      Processing[Delivery[Payload]]
	errorProcessing ErrorProcessing

	maxBodyBytes int64
}

func NewPushHandler[Payload any](processing Processing[Delivery[Payload]], errProcessing ErrorProcessing) PushHandler[Payload] {
	return PushHandler[Payload]{
		processing:      processing,
		errorProcessing: errProcessing,
		maxBodyBytes:    defaultMaxBodyBytes,
	}
}

func (h PushHandler[Payload]) WithLogger(logger logr.Logger) PushHandler[Payload] {
	h.logger = &logger

	return h
}

func (h PushHandler[Payload]) WithMaxBodyBytes(limit int64) PushHandler[Payload] {
	// A zero or negative limit would make MaxBytesReader reject every body
	if limit > 0 {
		h.maxBodyBytes = limit
	}

	return h
}

func (h PushHandler[Payload]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST is accepted")

		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.logError(err, "Failed to read push body")
		writeError(w, http.StatusBadRequest, "unreadable body")

		return
	}

	envelope := Envelope{}

	err = json.Unmarshal(body, &envelope)
	if err != nil {
		h.logError(err, "Failed to decode push frame")
		writeError(w, http.StatusBadRequest, "malformed push frame")

		return
	}

	err = envelope.Validate()
	if err != nil {
		h.logError(err, "Invalid push frame")
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	h.logInfo(3, "Processing delivery",
		"subscription", envelope.Subscription,
		"messageId", envelope.Message.MessageID,
		"publishTime", envelope.Message.PublishTime,
	)

	info := DeliveryInfo{
		Subscription: envelope.Subscription,
		MessageID:    envelope.Message.MessageID,
		PublishTime:  envelope.Message.PublishTime,
		Payload:      envelope.Message.Data,
	}

	payload := new(Payload)

	err = json.Unmarshal(envelope.Message.Data, payload)
	if err != nil {
		// The bus redelivers: transient corruption upstream is
		// indistinguishable from a permanently bad payload.
		processingError := NewRetryableErrProcessingError(err, UnmarshalErrorCategory, nil).WithDelivery(info)

		h.processError(ctx, processingError, info)
		writeError(w, http.StatusServiceUnavailable, UnmarshalErrorCategory)

		return
	}

	delivery := Delivery[Payload]{
		Payload:      *payload,
		Subscription: envelope.Subscription,
		MessageID:    envelope.Message.MessageID,
		PublishTime:  envelope.Message.PublishTime,
		Attributes:   envelope.Message.Attributes,
	}

	err = h.processing.Process(ctx, delivery)
	if err != nil {
		h.processError(ctx, err, info)

		if errors.Is(err, ErrRetryableError) {
			writeError(w, http.StatusServiceUnavailable, categoryOf(err))
		} else {
			writeError(w, http.StatusInternalServerError, categoryOf(err))
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h PushHandler[Payload]) processError(ctx context.Context, pipelineError error, info DeliveryInfo) {
	// Don't run the error pipeline on a dead request context. The bus will
	// redeliver and the next attempt gets a valid context.
	err := ctx.Err()
	if err != nil {
		h.logInfo(1, "Not processing error, context has been cancelled")

		return
	}

	h.logError(pipelineError, "Processing failed",
		"subscription", info.Subscription,
		"messageId", info.MessageID,
	)

	processingError := createProcessingError(pipelineError)
	if processingError.Delivery == nil {
		processingError = processingError.WithDelivery(info)
	}

	err = h.errorProcessing.Process(ctx, processingError)
	if err != nil {
		h.logError(err, "Error pipeline failed")

		h.dumpErrorContext(processingError)
	}
}

func (h PushHandler[Payload]) dumpErrorContext(err ErrProcessingError) {
	if h.logger == nil {
		return
	}

	h.logger.Error(err,
		"Failed to process delivery",
		"push.subscription", err.Delivery.Subscription,
		"push.messageId", err.Delivery.MessageID,
		"push.publishTime", err.Delivery.PublishTime,
		"push.payload", err.Delivery.Payload,
		"additionalInputs", err.AdditionalInputs,
		"category", err.Category,
	)
}

func (h PushHandler[Payload]) logInfo(level int, msg string, keysAndValues ...any) {
	if h.logger == nil {
		return
	}

	h.logger.V(level).Info(msg, keysAndValues...)
}

func (h PushHandler[Payload]) logError(err error, msg string, keysAndValues ...any) {
	if h.logger == nil {
		return
	}

	h.logger.Error(err, msg, keysAndValues...)
}

func writeError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

func createProcessingError(err error) ErrProcessingError {
	ret := ErrProcessingError{}
	if errors.As(err, &ret) {
		return ret
	}

	return NewErrProcessingError(err, UnknownCategory, nil)
}

func categoryOf(err error) string {
	return createProcessingError(err).Category
}
