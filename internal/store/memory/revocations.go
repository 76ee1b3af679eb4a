package memory

import (
	"context"
	"sync"
	"time"

	"mwas-backend/internal/store"
)

// Revocations keeps revoked token ids until their tokens would have expired
// anyway. Used when no REDIS_URL is configured.
type Revocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

var _ store.Revocations = (*Revocations)(nil)

func NewRevocations() *Revocations {
	return &Revocations{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *Revocations) Revoke(_ context.Context, jti string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = until
	return nil
}

func (r *Revocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[jti]
	if !ok {
		return false, nil
	}
	if r.now().After(until) {
		delete(r.revoked, jti)
		return false, nil
	}
	return true, nil
}

// Sweep drops expired entries every interval until ctx is done.
func (r *Revocations) Sweep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.mu.Lock()
			now := r.now()
			for jti, until := range r.revoked {
				if now.After(until) {
					delete(r.revoked, jti)
				}
			}
			r.mu.Unlock()
		}
	}
}
