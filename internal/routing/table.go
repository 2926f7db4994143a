package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opsdash/materializer/internal/domain/entity"
)

var ErrNoRoute = errors.New("no routing entry configured")

// Route is one declarative routing entry, as loaded from configuration.
type Route struct {
	Subscription string
	Kind         string
	Topic        string
}

// Entry is a resolved routing entry.
type Entry struct {
	Subscription string
	Kind         entity.Kind
	Topic        string
}

// Table maps subscription names to projection kinds. It is built once at
// start-up and read-only afterward, concurrent lookups need no locking.
//
// Deliveries may carry either the fully qualified subscription path or the
// bare name, both resolve to the same entry.
type Table struct {
	entries map[string]Entry
}

func NewTable(routes []Route) (*Table, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoute
	}

	entries := make(map[string]Entry, 2*len(routes))

	for _, route := range routes {
		if route.Subscription == "" {
			return nil, fmt.Errorf("routing entry with empty subscription")
		}

		kind, err := entity.ParseKind(route.Kind)
		if err != nil {
			return nil, fmt.Errorf("invalid routing entry for %s: %w", route.Subscription, err)
		}

		entry := Entry{
			Subscription: route.Subscription,
			Kind:         kind,
			Topic:        route.Topic,
		}

		for _, name := range []string{route.Subscription, ShortName(route.Subscription)} {
			previous, duplicate := entries[name]
			if duplicate && previous.Subscription != entry.Subscription {
				return nil, fmt.Errorf("subscription name %s routes to both %s and %s", name, previous.Subscription, entry.Subscription)
			}

			if duplicate && previous.Kind != entry.Kind {
				return nil, fmt.Errorf("subscription %s configured twice with different kinds", route.Subscription)
			}

			entries[name] = entry
		}
	}

	return &Table{entries: entries}, nil
}

// Resolve returns the entry for a subscription, trying the exact name first
// and the short name second.
func (t *Table) Resolve(subscription string) (Entry, bool) {
	entry, found := t.entries[subscription]
	if found {
		return entry, true
	}

	entry, found = t.entries[ShortName(subscription)]

	return entry, found
}

// ShortName returns the last segment of a subscription path.
func ShortName(subscription string) string {
	idx := strings.LastIndex(subscription, "/")
	if idx < 0 {
		return subscription
	}

	return subscription[idx+1:]
}
