package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/auth-go"
)

// SupabaseVerifier validates tokens by asking the Supabase auth server who
// the bearer is.
type SupabaseVerifier struct {
	client auth.Client
}

// NewSupabaseVerifier returns a verifier for the project at baseURL.
func NewSupabaseVerifier(baseURL, anonKey string, timeout time.Duration) *SupabaseVerifier {
	baseURL = strings.TrimRight(baseURL, "/")
	client := auth.New(projectRef(baseURL), anonKey).
		WithCustomAuthURL(baseURL + "/auth/v1").
		WithClient(http.Client{Timeout: timeout})
	return &SupabaseVerifier{client: client}
}

// projectRef returns the first host label, e.g. "abcd" for abcd.supabase.co.
func projectRef(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, _, _ := strings.Cut(u.Hostname(), ".")
	return ref
}

// Verify resolves the user behind token. The auth client takes no context;
// the configured timeout bounds the call.
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := v.client.WithToken(token).GetUser()
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("identity provider unreachable: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if u == nil || u.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: response has no user id", ErrInvalidToken)
	}

	return &Profile{
		Subject:   u.ID.String(),
		Email:     u.Email,
		Name:      metadataString(u.UserMetadata, "full_name"),
		AvatarURL: metadataString(u.UserMetadata, "avatar_url"),
		ExpiresAt: unverifiedExpiry(token),
	}, nil
}
