// Package identity verifies bearer credentials against the external identity
// provider and returns the caller's profile.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vista/internal/config"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidToken reports a credential the provider rejected.
var ErrInvalidToken = errors.New("identity: invalid token")

// Profile is the identity asserted by the provider for a verified token.
type Profile struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Verifier exchanges a raw bearer token for a verified profile. Any failure,
// including transport errors, means the token cannot be trusted.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Profile, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (*Profile, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Profile, error) {
	return f(ctx, token)
}

// NewVerifier builds the verifier selected by cfg.IdPKind. When rdb is set and
// an identity cache TTL is configured, verified profiles are cached in Redis.
func NewVerifier(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *slog.Logger) (Verifier, error) {
	var v Verifier
	switch cfg.IdPKind {
	case config.IdPSupabase:
		v = NewSupabaseVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.IdPTimeout())
	case config.IdPJWT:
		v = NewJWTVerifier([]byte(cfg.SupabaseJWTSecret))
	case config.IdPOIDC:
		ov, err := NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			return nil, err
		}
		v = ov
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.IdPKind)
	}
	log.Info("Identity provider configured", slog.String("kind", cfg.IdPKind))

	if rdb != nil && cfg.IdentityCacheTTL() > 0 {
		log.Info("Identity cache enabled", slog.Duration("ttl", cfg.IdentityCacheTTL()))
		return NewCachedVerifier(v, rdb, cfg.IdentityCacheTTL(), log), nil
	}
	return v, nil
}

// metadataString returns a trimmed, non-empty string value from claims.
func metadataString(m map[string]any, key string) *string {
	raw, ok := m[key].(string)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}
