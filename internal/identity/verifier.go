package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ErrNoVerifier is returned when bearer auth is used without a verifier.
var ErrNoVerifier = errors.New("no token verifier configured")

// Verifier checks a bearer token with the identity provider.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.VerifiedUser, error)
}

type cachedUser struct {
	user    *domain.VerifiedUser
	expires time.Time
}

// CachedVerifier caches successful verifications for a TTL and collapses
// concurrent verifications of the same token into one upstream call.
// Failures are never cached.
type CachedVerifier struct {
	next  Verifier
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cachedUser
}

// NewCachedVerifier wraps next. A non-positive ttl disables caching.
func NewCachedVerifier(next Verifier, ttl time.Duration) *CachedVerifier {
	return &CachedVerifier{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedUser),
	}
}

// Verify returns the identity for token.
func (c *CachedVerifier) Verify(ctx context.Context, token string) (*domain.VerifiedUser, error) {
	if c == nil || c.next == nil {
		return nil, ErrNoVerifier
	}
	if u, ok := c.lookup(token); ok {
		return u, nil
	}

	v, err, _ := c.group.Do(token, func() (any, error) {
		u, err := c.next.VerifyToken(ctx, token)
		if err != nil {
			return nil, err
		}
		c.store(token, u)
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.VerifiedUser), nil
}

func (c *CachedVerifier) lookup(token string) (*domain.VerifiedUser, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, token)
		return nil, false
	}
	return e.user, true
}

func (c *CachedVerifier) store(token string, u *domain.VerifiedUser) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if len(c.entries) >= 1024 {
		for k, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[token] = cachedUser{user: u, expires: now.Add(c.ttl)}
}
