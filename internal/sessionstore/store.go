// Package sessionstore keeps per-session checkout state as JSON values.
package sessionstore

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Keys used by the checkout pipeline.
const (
	KeyGuestCart         = "guest_cart"
	KeySelection         = "checkout_selection"
	KeyPreviousSelection = "previous_selection"
	KeySelectedAddress   = "selected_address"
	KeyAddresses         = "addresses"
	KeyLastOrder         = "last_order"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("session value not found")

// Store persists JSON-encodable values keyed by session and name.
type Store interface {
	Get(ctx context.Context, sessionID, key string, dst any) error
	Put(ctx context.Context, sessionID, key string, value any) error
	Delete(ctx context.Context, sessionID, key string) error
}

// Pruner is implemented by stores that can expire old values.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunJanitor prunes values older than ttl every interval until ctx is done.
func RunJanitor(ctx context.Context, p Pruner, ttl, interval time.Duration, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("janitor")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := p.Prune(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Warn("prune session values", zap.Error(err))
				continue
			}
			if removed > 0 {
				log.Info("pruned expired session values", zap.Int64("removed", removed))
			}
		}
	}
}
