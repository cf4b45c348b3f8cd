package auth

import (
	"context"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/baovptse192440/NongSanProject-sub002/internal/domain"
)

// Identity is the verified caller of a storefront or admin request.
type Identity struct {
	UID   string
	Email string
	Role  domain.UserRole

	token *firebaseauth.Token
}

// Token exposes the decoded Firebase ID token, nil for identities built in tests.
func (i *Identity) Token() *firebaseauth.Token {
	if i == nil {
		return nil
	}
	return i.token
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == domain.UserRoleAdmin
}

type contextKey string

const identityContextKey contextKey = "github.com/baovptse192440/NongSanProject-sub002/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil || identity.UID == "" {
		return nil, false
	}
	return identity, true
}
