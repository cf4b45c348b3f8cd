package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "nongsan-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "nongsan-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if len(cfg.Security.OIDC.Issuers) != 1 || cfg.Security.OIDC.Issuers[0] != defaultSecurityIssuer {
		t.Errorf("expected default issuer, got %v", cfg.Security.OIDC.Issuers)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Orders.PlaceholderImage != defaultPlaceholderImage {
		t.Errorf("unexpected placeholder image %q", cfg.Orders.PlaceholderImage)
	}
	if cfg.Orders.NumberMaxAttempts != 10 {
		t.Errorf("expected 10 order number attempts, got %d", cfg.Orders.NumberMaxAttempts)
	}
	if cfg.Orders.TransitionPolicy != "standard" {
		t.Errorf("expected standard transition policy, got %s", cfg.Orders.TransitionPolicy)
	}
	if cfg.Mail.Transport != "log" {
		t.Errorf("expected log mail transport, got %s", cfg.Mail.Transport)
	}
	if cfg.Mail.Currency != "VND" {
		t.Errorf("expected VND currency, got %s", cfg.Mail.Currency)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                   "9090",
		"API_SERVER_IDLE_TIMEOUT":           "2m",
		"API_FIREBASE_PROJECT_ID":           "nongsan-prod",
		"API_FIRESTORE_PROJECT_ID":          "nongsan-fire",
		"API_SECURITY_ENVIRONMENT":          "PROD",
		"API_SECURITY_OIDC_AUDIENCES":       "prod=https://api.example.com,stg=https://stg.example.com",
		"API_ORDERS_NUMBER_MAX_ATTEMPTS":    "4",
		"API_ORDERS_NUMBER_BACKOFF_INITIAL": "10ms",
		"API_ORDERS_TRANSITION_POLICY":      "custom",
		"API_ORDERS_TRANSITIONS":            "pending=confirmed|cancelled, confirmed=shipped",
		"API_ORDERS_ADMIN_EMAILS":           "ops@example.com, owner@example.com",
		"API_MAIL_TRANSPORT":                "smtp",
		"API_MAIL_SMTP_HOST":                "smtp.example.com",
		"API_MAIL_SMTP_PORT":                "2525",
		"API_MAIL_SMTP_USERNAME":            "mailer",
		"API_MAIL_SMTP_PASSWORD":            "sm://smtp/password",
		"API_MAIL_CURRENCY":                 "usd",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "secret://smtp/password" {
			return "s3cret", nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Firestore.ProjectID != "nongsan-fire" {
		t.Errorf("expected explicit firestore project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Security.OIDC.Audience != "https://api.example.com" {
		t.Errorf("expected audience resolved from environment map, got %q", cfg.Security.OIDC.Audience)
	}
	if cfg.Orders.NumberMaxAttempts != 4 || cfg.Orders.NumberBackoffInitial != 10*time.Millisecond {
		t.Errorf("unexpected order number config: %+v", cfg.Orders)
	}
	if cfg.Orders.Transitions["pending"] != "confirmed|cancelled" || cfg.Orders.Transitions["confirmed"] != "shipped" {
		t.Errorf("unexpected transitions: %v", cfg.Orders.Transitions)
	}
	if len(cfg.Orders.AdminEmails) != 2 {
		t.Errorf("expected two admin emails, got %v", cfg.Orders.AdminEmails)
	}
	if cfg.Mail.SMTP.Password != "s3cret" {
		t.Errorf("expected smtp password resolved from secret manager")
	}
	if cfg.Mail.SMTP.Port != 2525 {
		t.Errorf("expected smtp port 2525, got %d", cfg.Mail.SMTP.Port)
	}
	if cfg.Mail.Currency != "USD" {
		t.Errorf("expected upper-cased currency, got %s", cfg.Mail.Currency)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"API_ORDERS_TRANSITION_POLICY": "custom",
		"API_MAIL_TRANSPORT":           "pubsub",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]bool{
		"Firebase.ProjectID":  false,
		"Firestore.ProjectID": false,
		"Orders.Transitions":  false,
		"Mail.PubSubTopic":    false,
	}
	for _, field := range vErr.Fields() {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %s to be reported, got %v", field, vErr.Fields())
		}
	}
}

func TestLoadSecretResolutionFailure(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "nongsan-dev",
		"API_MAIL_SMTP_PASSWORD":  "secret://smtp/password",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected secret error, got %v", err)
	}
	if sErr.Ref != "secret://smtp/password" {
		t.Errorf("unexpected ref %s", sErr.Ref)
	}
}

func TestLoadRequiredSecretsMissing(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "nongsan-dev",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithRequiredSecrets("Mail.SMTP.Password"))
	var mErr *MissingSecretsError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected missing secrets error, got %v", err)
	}
	if names := mErr.Names(); len(names) != 1 || names[0] != "Mail.SMTP.Password" {
		t.Errorf("unexpected names %v", names)
	}
	if redacted := mErr.RedactedNames(); len(redacted) != 1 || redacted[0] == "Mail.SMTP.Password" {
		t.Errorf("expected redacted names, got %v", redacted)
	}
}

func TestLoadReadsDotEnvBelowEnvMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport API_FIREBASE_PROJECT_ID=\"from-file\"\nAPI_SERVER_PORT=7070\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"API_SERVER_PORT": "6060",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "from-file" {
		t.Errorf("expected project from .env, got %s", cfg.Firebase.ProjectID)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win over .env, got %s", cfg.Server.Port)
	}
}
