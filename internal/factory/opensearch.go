package factory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/opsdash/materializer/internal/config"
)

func CreateOpenSearchClient(ctx context.Context, conf config.OpenSearch) (*opensearch.Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: conf.Insecure,
		},
	}

	ret, err := opensearch.NewClient(opensearch.Config{
		Addresses: conf.Addresses,
		Username:  conf.Username,
		Password:  conf.Creds.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	err = retry.Do(
		func() error {
			res, infoErr := ret.Info(ret.Info.WithContext(ctx))
			if infoErr != nil {
				return infoErr
			}
			defer res.Body.Close()

			if res.IsError() {
				return fmt.Errorf("opensearch returned %s", res.Status())
			}

			return nil
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}

	return ret, nil
}
