package projection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/domain/entity"
)

var errUnexpectedUpdateResult = errors.New("unexpected update result")

// applyPainless is the opensearch flavour of the merge script. The document
// keeps the ordering token in _token (unix microseconds) and the script
// turns stale updates into a noop instead of failing them.
const applyPainless = `
if (ctx._source._token != null && ((Number)ctx._source._token).longValue() >= ((Number)params.token).longValue()) {
  ctx.op = 'none';
} else {
  ctx._source._token = params.token;
  for (entry in params.set.entrySet()) {
    ctx._source[entry.getKey()] = entry.getValue();
  }
  for (entry in params.create.entrySet()) {
    if (!ctx._source.containsKey(entry.getKey())) {
      ctx._source[entry.getKey()] = entry.getValue();
    }
  }
}
`

type OpenSearchRepo struct {
	client         *opensearch.Client
	indexPrefix    string
	requestTimeout time.Duration
}

func NewOpenSearchRepo(client *opensearch.Client, indexPrefix string, requestTimeout time.Duration) OpenSearchRepo {
	return OpenSearchRepo{
		client:         client,
		indexPrefix:    indexPrefix,
		requestTimeout: requestTimeout,
	}
}

func (r OpenSearchRepo) ApplyProjection(ctx context.Context, update entity.ProjectionUpdate) (entity.Outcome, error) {
	if update.DocumentID == "" {
		return "", common.NewErrProcessingError(errEmptyDocumentID, categoryErrProjectionStore, nil, "collection %s", update.Collection)
	}

	if r.requestTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.requestTimeout)
		defer cancel()
	}

	// Build the scripted upsert
	body, err := r.encodeBody(update)
	if err != nil {
		return "", common.NewErrProcessingError(err, categoryErrProjectionStore, nil, "failed to encode update for %s", update.DocumentID)
	}

	retryOnConflict := 3
	request := opensearchapi.UpdateRequest{
		Index:           r.indexFor(update.Collection),
		DocumentID:      update.DocumentID,
		Body:            bytes.NewReader(body),
		RetryOnConflict: &retryOnConflict,
	}

	res, err := request.Do(ctx, r.client)
	if err != nil {
		return "", common.NewRetryableErrProcessingError(err, categoryErrProjectionStore, nil, "failed to call opensearch for %s", update.DocumentID)
	}
	defer res.Body.Close()

	if res.IsError() {
		reqErr := fmt.Errorf("opensearch update returned %s", res.Status())

		switch {
		case r.isRetryableStatus(res.StatusCode):
			return "", common.NewRetryableErrProcessingError(reqErr, categoryErrProjectionStore, nil, "failed to update %s", update.DocumentID)
		default:
			return "", common.NewErrProcessingError(reqErr, categoryErrProjectionStore, nil, "failed to update %s", update.DocumentID)
		}
	}

	// Map the update result
	result := struct {
		Result string `json:"result"`
	}{}

	err = json.NewDecoder(res.Body).Decode(&result)
	if err != nil {
		return "", common.NewErrProcessingError(err, categoryErrProjectionStore, nil, "failed to decode update response for %s", update.DocumentID)
	}

	return r.mapResult(result.Result, update.DocumentID)
}

func (r OpenSearchRepo) indexFor(collection entity.Collection) string {
	return r.indexPrefix + string(collection)
}

func (r OpenSearchRepo) encodeBody(update entity.ProjectionUpdate) ([]byte, error) {
	set := update.Set
	if set == nil {
		set = map[string]interface{}{}
	}

	create := update.SetOnCreate
	if create == nil {
		create = map[string]interface{}{}
	}

	body := map[string]interface{}{
		"scripted_upsert": true,
		"script": map[string]interface{}{
			"lang":   "painless",
			"source": applyPainless,
			"params": map[string]interface{}{
				"token":  update.Token.UnixMicro(),
				"set":    set,
				"create": create,
			},
		},
		"upsert": map[string]interface{}{},
	}

	ret, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update body: %w", err)
	}

	return ret, nil
}

func (r OpenSearchRepo) mapResult(result string, documentID string) (entity.Outcome, error) {
	switch result {
	case "created":
		return entity.OutcomeCreated, nil
	case "updated":
		return entity.OutcomeApplied, nil
	case "noop":
		return entity.OutcomeStale, nil
	default:
		return "", common.NewErrProcessingError(errUnexpectedUpdateResult, categoryErrProjectionStore, nil, "result %q for %s", result, documentID)
	}
}

func (r OpenSearchRepo) isRetryableStatus(status int) bool {
	switch {
	case status == http.StatusConflict:
		return true // Concurrent update raced past RetryOnConflict
	case status == http.StatusTooManyRequests:
		return true
	case status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}
