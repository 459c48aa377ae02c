package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"vista/internal/observability"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "identity:"

// CachedVerifier remembers verified profiles in Redis for a short time so
// that bursts of requests with the same token reach the provider once.
// Cache failures fall through to the wrapped verifier.
type CachedVerifier struct {
	next Verifier
	rdb  *redis.Client
	ttl  time.Duration
	log  *slog.Logger
	now  func() time.Time
}

// NewCachedVerifier wraps next with a Redis cache of at most ttl per entry.
func NewCachedVerifier(next Verifier, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedVerifier {
	return &CachedVerifier{next: next, rdb: rdb, ttl: ttl, log: log, now: time.Now}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Verify returns the cached profile for token or verifies it with the
// wrapped verifier. Rejections are never cached.
func (v *CachedVerifier) Verify(ctx context.Context, token string) (*Profile, error) {
	key := cacheKey(token)

	raw, err := v.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Profile
		if jerr := json.Unmarshal(raw, &p); jerr == nil && (p.ExpiresAt.IsZero() || v.now().Before(p.ExpiresAt)) {
			observability.IdentityCacheLookups.WithLabelValues("hit").Inc()
			return &p, nil
		}
	case !errors.Is(err, redis.Nil):
		v.log.WarnContext(ctx, "Identity cache read failed", slog.String("error", err.Error()))
	}
	observability.IdentityCacheLookups.WithLabelValues("miss").Inc()

	p, err := v.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := v.ttl
	if !p.ExpiresAt.IsZero() {
		if remaining := p.ExpiresAt.Sub(v.now()); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return p, nil
	}

	payload, err := json.Marshal(p)
	if err == nil {
		err = v.rdb.Set(ctx, key, payload, ttl).Err()
	}
	if err != nil {
		v.log.WarnContext(ctx, "Identity cache write failed", slog.String("error", err.Error()))
	}
	return p, nil
}
