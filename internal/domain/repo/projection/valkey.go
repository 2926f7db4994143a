package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"syscall"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/opsdash/materializer/internal/common"
	"github.com/opsdash/materializer/internal/domain/entity"
)

const categoryErrProjectionStore = "projection_store"

var (
	errEmptyDocumentID        = errors.New("empty document id")
	errUnexpectedScriptResult = errors.New("unexpected merge script result")
)

// applyScript runs the token gated merge server side so that concurrent
// deliveries for the same document serialize inside valkey.
//
// KEYS[1] is the document hash. ARGV[1] is the candidate token in unix
// microseconds, ARGV[2] the number of merge pairs, followed by the merge
// field/value pairs and then the create-only pairs.
//
// Returns 0 when stale, 1 when merged into an existing document, 2 when the
// document was created.
var applyScript = valkey.NewLuaScript(`local stored = redis.call('HGET', KEYS[1], '_token')
if stored and tonumber(stored) >= tonumber(ARGV[1]) then
  return 0
end

local created = redis.call('EXISTS', KEYS[1]) == 0

redis.call('HSET', KEYS[1], '_token', ARGV[1])

local nbSet = tonumber(ARGV[2])

for i = 0, nbSet - 1 do
  redis.call('HSET', KEYS[1], ARGV[3 + 2*i], ARGV[4 + 2*i])
end

for i = 3 + 2*nbSet, #ARGV - 1, 2 do
  redis.call('HSETNX', KEYS[1], ARGV[i], ARGV[i + 1])
end

if created then
  return 2
end

return 1`)

type ValkeyRepo struct {
	client         valkey.Client
	requestTimeout time.Duration
}

func NewValkeyRepo(client valkey.Client, requestTimeout time.Duration) ValkeyRepo {
	return ValkeyRepo{
		client:         client,
		requestTimeout: requestTimeout,
	}
}

func (r ValkeyRepo) ApplyProjection(ctx context.Context, update entity.ProjectionUpdate) (entity.Outcome, error) {
	if update.DocumentID == "" {
		return "", common.NewErrProcessingError(errEmptyDocumentID, categoryErrProjectionStore, nil, "collection %s", update.Collection)
	}

	if r.requestTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.requestTimeout)
		defer cancel()
	}

	// Encode update
	args, err := r.encodeArgs(update)
	if err != nil {
		return "", common.NewErrProcessingError(err, categoryErrProjectionStore, nil, "failed to encode update for %s", update.DocumentID)
	}

	// Run the merge script
	key := DocumentKey(update.Collection, update.DocumentID)

	resp := applyScript.Exec(ctx, r.client, []string{key}, args)

	err = resp.Error()
	if err != nil {
		switch {
		case r.isRetryable(err):
			return "", common.NewRetryableErrProcessingError(err, categoryErrProjectionStore, nil, "failed to run merge script for %s", key)
		default:
			return "", common.NewErrProcessingError(err, categoryErrProjectionStore, nil, "failed to run merge script for %s", key)
		}
	}

	code, err := resp.AsInt64()
	if err != nil {
		return "", common.NewErrProcessingError(err, categoryErrProjectionStore, nil, "unexpected merge script response for %s", key)
	}

	return r.mapOutcome(code, key)
}

// DocumentKey names the valkey hash holding one materialized document.
func DocumentKey(collection entity.Collection, documentID string) string {
	return fmt.Sprintf("%s:%s", collection, documentID)
}

// EncodeToken renders an ordering token the way the merge script compares
// it. Unix microseconds stay exact in lua numbers.
func EncodeToken(token time.Time) string {
	return strconv.FormatInt(token.UnixMicro(), 10)
}

func (r ValkeyRepo) encodeArgs(update entity.ProjectionUpdate) ([]string, error) {
	ret := make([]string, 0, 2+2*len(update.Set)+2*len(update.SetOnCreate))

	ret = append(ret, EncodeToken(update.Token), strconv.Itoa(len(update.Set)))

	for field, value := range update.Set {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %s: %w", field, err)
		}

		ret = append(ret, field, string(data))
	}

	for field, value := range update.SetOnCreate {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal create-only field %s: %w", field, err)
		}

		ret = append(ret, field, string(data))
	}

	return ret, nil
}

func (r ValkeyRepo) mapOutcome(code int64, key string) (entity.Outcome, error) {
	switch code {
	case 0:
		return entity.OutcomeStale, nil
	case 1:
		return entity.OutcomeApplied, nil
	case 2:
		return entity.OutcomeCreated, nil
	default:
		return "", common.NewErrProcessingError(errUnexpectedScriptResult, categoryErrProjectionStore, nil, "code %d for %s", code, key)
	}
}

func (r ValkeyRepo) isRetryable(err error) bool {
	// Network error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// Bounded request timeout
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Valkey specific error
	vErr, isValkeyError := valkey.IsValkeyErr(err)
	if !isValkeyError { // Retryable errors should have been handled before this block
		return false
	}

	return vErr.IsTryAgain()
}
