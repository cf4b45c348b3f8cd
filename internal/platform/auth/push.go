package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const authMeterName = "github.com/baovptse192440/NongSanProject-sub002/internal/platform/auth"

// PushAuthConfig lists what a Pub/Sub push token must carry.
type PushAuthConfig struct {
	// Audience must appear in the token's aud claim. Requests are refused while it is empty.
	Audience string
	Issuers  []string
	// ServiceAccounts, when set, restricts the verified email claim to these push identities.
	ServiceAccounts []string
}

// PushCaller describes the service account that signed a push request.
type PushCaller struct {
	Subject string
	Email   string
	Issuer  string
}

type pushCallerContextKey struct{}

// PushCallerFromContext retrieves the caller stored by the push middleware.
func PushCallerFromContext(ctx context.Context) (PushCaller, bool) {
	caller, ok := ctx.Value(pushCallerContextKey{}).(PushCaller)
	return caller, ok
}

// PushAuthenticator validates Google-signed OIDC tokens attached to Pub/Sub push deliveries.
type PushAuthenticator struct {
	keys            *JWKSCache
	audience        string
	issuers         map[string]struct{}
	serviceAccounts map[string]struct{}
	logger          *zap.Logger
	verifications   metric.Int64Counter
}

// PushOption customises the push authenticator.
type PushOption func(*PushAuthenticator)

// WithPushLogger sets the logger used for rejected deliveries.
func WithPushLogger(logger *zap.Logger) PushOption {
	return func(p *PushAuthenticator) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPushMeter overrides the meter used for the verification counter.
func WithPushMeter(meter metric.Meter) PushOption {
	return func(p *PushAuthenticator) {
		if meter == nil {
			return
		}
		if counter, err := meter.Int64Counter("auth.push.verifications"); err == nil {
			p.verifications = counter
		}
	}
}

// NewPushAuthenticator constructs the push middleware factory.
func NewPushAuthenticator(keys *JWKSCache, cfg PushAuthConfig, opts ...PushOption) (*PushAuthenticator, error) {
	if keys == nil {
		return nil, errors.New("push authenticator: jwks cache is required")
	}
	p := &PushAuthenticator{
		keys:            keys,
		audience:        strings.TrimSpace(cfg.Audience),
		issuers:         toSet(cfg.Issuers, false),
		serviceAccounts: toSet(cfg.ServiceAccounts, true),
		logger:          zap.NewNop(),
	}
	WithPushMeter(otel.GetMeterProvider().Meter(authMeterName))(p)
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Middleware rejects requests without a valid push token and stores the PushCaller on success.
func (p *PushAuthenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if p.audience == "" {
				p.reject(ctx, w, http.StatusServiceUnavailable, "audience_not_configured", nil)
				return
			}
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				p.reject(ctx, w, http.StatusUnauthorized, "token_missing", nil)
				return
			}

			claims := jwt.MapClaims{}
			parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
			if _, err := parser.ParseWithClaims(tokenStr, claims, p.keys.keyfunc(ctx)); err != nil {
				if errors.Is(err, ErrJWKSFetchFailed) {
					p.reject(ctx, w, http.StatusServiceUnavailable, "jwks_unavailable", err)
					return
				}
				p.reject(ctx, w, http.StatusUnauthorized, "token_invalid", err)
				return
			}

			issuer, _ := claims["iss"].(string)
			if len(p.issuers) > 0 {
				if _, ok := p.issuers[issuer]; !ok {
					p.reject(ctx, w, http.StatusUnauthorized, "issuer_mismatch", nil)
					return
				}
			}
			if !claims.VerifyAudience(p.audience, true) {
				p.reject(ctx, w, http.StatusUnauthorized, "audience_mismatch", nil)
				return
			}

			email := strings.ToLower(claimAsString(claims, "email"))
			if len(p.serviceAccounts) > 0 {
				verified, _ := claims["email_verified"].(bool)
				if _, ok := p.serviceAccounts[email]; !ok || !verified {
					p.reject(ctx, w, http.StatusForbidden, "service_account_mismatch", nil)
					return
				}
			}

			subject, _ := claims["sub"].(string)
			p.count(ctx, "ok")
			caller := PushCaller{Subject: subject, Email: email, Issuer: issuer}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, pushCallerContextKey{}, caller)))
		})
	}
}

func (p *PushAuthenticator) reject(ctx context.Context, w http.ResponseWriter, status int, reason string, err error) {
	p.count(ctx, reason)
	fields := []zap.Field{zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	p.logger.Warn("auth: push request rejected", fields...)

	code := "invalid_token"
	switch status {
	case http.StatusServiceUnavailable:
		code = "verification_unavailable"
	case http.StatusForbidden:
		code = "forbidden"
	}
	writeAuthError(ctx, w, status, code, "push token verification failed")
}

func (p *PushAuthenticator) count(ctx context.Context, result string) {
	if p.verifications == nil {
		return
	}
	p.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func toSet(values []string, lower bool) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if lower {
			value = strings.ToLower(value)
		}
		if value != "" {
			set[value] = struct{}{}
		}
	}
	return set
}
