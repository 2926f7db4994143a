package pipeline

import (
	"errors"
	"time"
)

// Envelope is the push frame posted by the bus: a single message plus the
// subscription it was delivered on.

type Envelope struct {
	Message      Message `json:"message"`
	Subscription string  `json:"subscription"`
}

type Message struct {
	Data        []byte            `json:"data"`
	Attributes  map[string]string `json:"attributes"`
	MessageID   string            `json:"messageId"`
	PublishTime time.Time         `json:"publishTime"`
}

var (
	errMissingSubscription = errors.New("missing subscription")
	errMissingMessageID    = errors.New("missing messageId")
	errMissingPublishTime  = errors.New("missing publishTime")
	errEmptyData           = errors.New("empty message data")
)

func (e Envelope) Validate() error {
	if e.Subscription == "" {
		return errMissingSubscription
	}

	if e.Message.MessageID == "" {
		return errMissingMessageID
	}

	if e.Message.PublishTime.IsZero() {
		return errMissingPublishTime
	}

	if len(e.Message.Data) == 0 {
		return errEmptyData
	}

	return nil
}

// Delivery is what the processing chain receives: the decoded payload plus
// the delivery metadata needed for routing and ordering.

type Delivery[Payload any] struct {
	Payload Payload

	Subscription string
	MessageID    string
	PublishTime  time.Time
	Attributes   map[string]string
}

// DeliveryInfo carries the delivery context on processing errors, with the
// raw payload bytes so failed deliveries can be archived.

type DeliveryInfo struct {
	Subscription string
	MessageID    string
	PublishTime  time.Time
	Payload      []byte
}
