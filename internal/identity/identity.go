// Package identity resolves optional display names for discovered accounts.
// Resolution is best effort: a failure never blocks discovery.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

// ErrPartialResolution means some resolvers failed; the names that were
// resolved are still returned alongside it.
var ErrPartialResolution = errors.New("identity resolution incomplete")

// Resolver returns display names for the accounts it knows. Missing accounts
// are absent from the map.
type Resolver interface {
	Resolve(ctx context.Context, ids types.AccountSet) (map[types.AccountID]string, error)
}

// Static serves names from a fixed table, typically from configuration.
type Static map[types.AccountID]string

// Resolve implements Resolver.
func (s Static) Resolve(_ context.Context, ids types.AccountSet) (map[types.AccountID]string, error) {
	out := make(map[types.AccountID]string)
	for id := range ids {
		if name, ok := s[id]; ok && name != "" {
			out[id] = name
		}
	}
	return out, nil
}

// Chain asks each resolver in order for the accounts still unnamed. Earlier
// resolvers win.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, ids types.AccountSet) (map[types.AccountID]string, error) {
	names := make(map[types.AccountID]string)
	pending := ids.Difference(nil)
	var errs []error

	for i, r := range c {
		if pending.Len() == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return names, err
		}

		got, err := r.Resolve(ctx, pending.Difference(nil))
		if err != nil {
			errs = append(errs, fmt.Errorf("resolver %d: %w", i, err))
		}
		for id, name := range got {
			if name == "" || !pending.Has(id) {
				continue
			}
			names[id] = name
			delete(pending, id)
		}
	}

	if len(errs) > 0 {
		return names, fmt.Errorf("%w: %w", ErrPartialResolution, errors.Join(errs...))
	}
	return names, nil
}

// BestEffort runs r and never fails: errors are logged at Warn and whatever
// names were resolved are returned. A nil resolver yields no names.
func BestEffort(ctx context.Context, r Resolver, ids types.AccountSet, log *logger.Logger) map[types.AccountID]string {
	if r == nil || ids.Len() == 0 {
		return map[types.AccountID]string{}
	}
	names, err := r.Resolve(ctx, ids)
	if names == nil {
		names = map[types.AccountID]string{}
	}
	if err != nil && log != nil {
		log.Warnw("identity resolution incomplete",
			"requested", ids.Len(),
			"resolved", len(names),
			"error", err)
	}
	return names
}
