package factory

import (
	"context"
	"fmt"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/config"
	"github.com/opsdash/materializer/internal/domain/repo"
	"github.com/opsdash/materializer/internal/domain/repo/projection"
)

func CreateProjectionWriter(ctx context.Context, conf config.Store) (repo.ProjectionWriter, common.CloseFunc, error) {
	switch conf.Driver {
	case config.DriverTypeValkey:
		client, closeFunc, err := CreateValkeyClient(ctx, conf.Valkey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create valkey client: %w", err)
		}

		return projection.NewValkeyRepo(client, conf.RequestTimeout), closeFunc, nil

	case config.DriverTypeOpenSearch:
		client, err := CreateOpenSearchClient(ctx, conf.OpenSearch)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create opensearch client: %w", err)
		}

		closeFunc := func(context.Context) error { return nil }

		return projection.NewOpenSearchRepo(client, conf.OpenSearch.IndexPrefix, conf.RequestTimeout), closeFunc, nil

	default:
		return nil, nil, fmt.Errorf("unexpected store driver %q", conf.Driver)
	}
}
