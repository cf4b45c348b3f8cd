package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/httpx"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/requestctx"
)

const (
	defaultRoleClaim     = "role"
	defaultVerifyTimeout = 5 * time.Second
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// ProfileLookup loads the stored user profile that carries the authoritative role.
type ProfileLookup interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
}

// Authenticator verifies Firebase ID tokens and resolves the caller's role.
// The profile role wins over the token claim; callers without a profile are treated as users
// unless the token carries an admin role claim.
type Authenticator struct {
	verifier  TokenVerifier
	profiles  ProfileLookup
	roleClaim string
	timeout   time.Duration
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithProfileLookup resolves roles from stored user profiles.
func WithProfileLookup(profiles ProfileLookup) Option {
	return func(a *Authenticator) {
		a.profiles = profiles
	}
}

// WithRoleClaim overrides the custom claim consulted when no profile role is available.
func WithRoleClaim(claim string) Option {
	return func(a *Authenticator) {
		if claim = strings.TrimSpace(claim); claim != "" {
			a.roleClaim = claim
		}
	}
}

// WithVerificationTimeout bounds token verification and the profile lookup.
func WithVerificationTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAuthenticator constructs a Firebase Authenticator for middleware composition.
func NewAuthenticator(verifier TokenVerifier, opts ...Option) *Authenticator {
	a := &Authenticator{
		verifier:  verifier,
		roleClaim: defaultRoleClaim,
		timeout:   defaultVerifyTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RequireUser admits any caller with a valid ID token.
func (a *Authenticator) RequireUser() func(http.Handler) http.Handler {
	return a.require(false)
}

// RequireAdmin admits only callers whose resolved role is admin. Others receive 403.
func (a *Authenticator) RequireAdmin() func(http.Handler) http.Handler {
	return a.require(true)
}

func (a *Authenticator) require(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeAuthError(ctx, w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}
			if a == nil || a.verifier == nil {
				writeAuthError(ctx, w, http.StatusServiceUnavailable, "auth_unavailable", "authorization service unavailable")
				return
			}

			identity, status, err := a.authenticate(ctx, tokenStr)
			if err != nil {
				requestctx.Logger(ctx).Info("auth: request rejected", zap.Error(err))
				switch status {
				case http.StatusServiceUnavailable:
					writeAuthError(ctx, w, status, "auth_unavailable", "unable to resolve caller profile")
				default:
					writeVerificationError(ctx, w, err)
				}
				return
			}

			if adminOnly && !identity.IsAdmin() {
				writeAuthError(ctx, w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}

			ctx = WithIdentity(ctx, identity)
			ctx = requestctx.WithLogger(ctx, requestctx.Logger(ctx).With(zap.String("userId", identity.UID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Authenticator) authenticate(ctx context.Context, tokenStr string) (*Identity, int, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	token, err := a.verifier.VerifyIDToken(ctx, tokenStr)
	if err != nil {
		return nil, http.StatusUnauthorized, err
	}
	if token == nil || strings.TrimSpace(token.UID) == "" {
		return nil, http.StatusUnauthorized, errors.New("auth: token has no subject")
	}

	identity := &Identity{
		UID:   token.UID,
		Email: claimAsString(token.Claims, "email"),
		Role:  roleFromClaims(token.Claims, a.roleClaim),
		token: token,
	}

	if a.profiles != nil {
		profile, err := a.profiles.FindByID(ctx, token.UID)
		switch {
		case err == nil:
			if profile.Role != "" {
				identity.Role = profile.Role
			}
			if identity.Email == "" {
				identity.Email = profile.Email
			}
		case !isNotFound(err):
			return nil, http.StatusServiceUnavailable, err
		}
	}
	return identity, http.StatusOK, nil
}

func roleFromClaims(claims map[string]interface{}, key string) domain.UserRole {
	switch v := claims[key].(type) {
	case string:
		if domain.UserRole(normaliseRole(v)) == domain.UserRoleAdmin {
			return domain.UserRoleAdmin
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && domain.UserRole(normaliseRole(s)) == domain.UserRoleAdmin {
				return domain.UserRoleAdmin
			}
		}
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		return domain.UserRoleAdmin
	}
	return domain.UserRoleUser
}

func isNotFound(err error) bool {
	var nf interface{ IsNotFound() bool }
	return errors.As(err, &nf) && nf.IsNotFound()
}

func claimAsString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func extractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	httpx.WriteError(ctx, w, httpx.NewError(code, message, status))
}

func writeVerificationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case firebaseauth.IsIDTokenExpired(err):
		writeAuthError(ctx, w, http.StatusUnauthorized, "token_expired", "firebase id token expired")
	case firebaseauth.IsIDTokenRevoked(err):
		writeAuthError(ctx, w, http.StatusUnauthorized, "token_revoked", "firebase id token revoked")
	default:
		writeAuthError(ctx, w, http.StatusUnauthorized, "invalid_token", "firebase id token verification failed")
	}
}
