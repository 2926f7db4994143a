package failurearchive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/opsdash/materializer/internal/log"
	"github.com/opsdash/materializer/internal/routing"
	"github.com/opsdash/materializer/internal/version"
	"github.com/opsdash/materializer/pkg/pipeline"
)

const (
	unknownHostname = "<unknown>"

	keyTemplate = "<prefix>/<year>/<month>/<day>/<subscription>/<messageId>.json"
)

var ErrNilDelivery = errors.New("nil delivery")

type S3Writer struct {
	s3client *s3.Client

	bucket string
	prefix string

	hostname string
}

func NewS3Writer(s3client *s3.Client, bucket string, prefix string) S3Writer {
	hostname, err := os.Hostname()
	if err != nil {
		log.Logger().Error(err, "failed to get hostname, falling backing to "+unknownHostname)

		hostname = unknownHostname
	}

	return S3Writer{
		s3client: s3client,
		bucket:   bucket,
		prefix:   prefix,
		hostname: hostname,
	}
}

func (r S3Writer) WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	// Create ProcessingError
	obj, err := r.createProcessingError(pErr)
	if err != nil {
		return fmt.Errorf("failed to create local model: %w", err)
	}

	// Marshal ProcessingError
	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal local model: %w", err)
	}

	// Compute object key
	key, err := r.computeObjectKey(pErr)
	if err != nil {
		return fmt.Errorf("failed to compute object key: %w", err)
	}

	// Write file
	params := &s3.PutObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
		Body:   bytes.NewReader(b),
	}

	_, err = r.s3client.PutObject(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to write in s3: %w", err)
	}

	return nil
}

func (r S3Writer) createProcessingError(pErr pipeline.ErrProcessingError) (ProcessingError, error) {
	if pErr.Delivery == nil {
		return ProcessingError{}, ErrNilDelivery
	}

	ret := ProcessingError{
		ProcessingContext: ProcessingContext{
			Component: Component{
				Branch:   version.Branch,
				Revision: version.Revision,
			},
			Time: time.Now(),
			Host: r.hostname,
		},
		Sources: Sources{
			Main: Source{
				Subscription: pErr.Delivery.Subscription,
				MessageID:    pErr.Delivery.MessageID,
				PublishTime:  pErr.Delivery.PublishTime,
				Payload:      pErr.Delivery.Payload,
			},
			Additional: make([]KeyValue, 0, len(pErr.AdditionalInputs)),
		},
		Reason: Reason{
			Category: pErr.Category,
			Error:    pErr.Error(),
		},
	}

	for _, kv := range pErr.AdditionalInputs {
		ret.Sources.Additional = append(ret.Sources.Additional, KeyValue{
			Key:   kv.Key,
			Value: kv.Value,
		})
	}

	return ret, nil
}

func (r S3Writer) computeObjectKey(pErr pipeline.ErrProcessingError) (string, error) {
	if pErr.Delivery == nil {
		return "", ErrNilDelivery
	}

	publishTime := pErr.Delivery.PublishTime.UTC()

	template := strings.NewReplacer(
		"<prefix>", r.prefix,
		"<year>", fmt.Sprintf("%04d", publishTime.Year()),
		"<month>", fmt.Sprintf("%02d", publishTime.Month()),
		"<day>", fmt.Sprintf("%02d", publishTime.Day()),
		"<subscription>", routing.ShortName(pErr.Delivery.Subscription),
		"<messageId>", pErr.Delivery.MessageID,
	)

	return template.Replace(keyTemplate), nil
}
