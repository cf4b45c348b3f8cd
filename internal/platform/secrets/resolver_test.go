package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSecretClient struct {
	mu     sync.Mutex
	values map[string]string
	errs   map[string]error
	calls  map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{values: map[string]string{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.GetName()]++
	if err, ok := f.errs[req.GetName()]; ok {
		return nil, err
	}
	value, ok := f.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "missing")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)}}, nil
}

func (f *fakeSecretClient) Close() error { return nil }

const smtpPasswordResource = "projects/shop/secrets/smtp-password/versions/latest"

func TestResolveCachesUntilTTL(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values[smtpPasswordResource] = "s3cret"

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resolver, err := NewResolver(ctx,
		WithClient(client),
		WithProject("shop"),
		WithFallbackFile(""),
		WithCacheTTL(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := resolver.Resolve(ctx, "secret://smtp-password")
		if err != nil || got != "s3cret" {
			t.Fatalf("resolve #%d: %q, %v", i, got, err)
		}
	}
	if calls := client.calls[smtpPasswordResource]; calls != 1 {
		t.Fatalf("expected one remote call, got %d", calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := resolver.Resolve(ctx, "sm://smtp-password"); err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if calls := client.calls[smtpPasswordResource]; calls != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", calls)
	}
}

func TestResolveFallsBackToLocalFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".secrets.local")
	content := "# local\nsecret://smtp-password=local-pass\nsmtp-user = shop\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fallback: %v", err)
	}

	client := newFakeSecretClient()
	client.errs[smtpPasswordResource] = status.Error(codes.PermissionDenied, "denied")

	resolver, err := NewResolver(ctx, WithClient(client), WithProject("shop"), WithFallbackFile(path))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	got, err := resolver.Resolve(ctx, "secret://smtp-password")
	if err != nil || got != "local-pass" {
		t.Fatalf("expected fallback value, got %q, %v", got, err)
	}
	got, err = resolver.Resolve(ctx, "secret://smtp-user")
	if err != nil || got != "shop" {
		t.Fatalf("expected bare-name fallback, got %q, %v", got, err)
	}

	_, err = resolver.Resolve(ctx, "secret://missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveSurfacesNonRecoverableErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.errs[smtpPasswordResource] = status.Error(codes.InvalidArgument, "bad name")

	resolver, err := NewResolver(ctx, WithClient(client), WithProject("shop"), WithFallbackFile(""))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	_, err = resolver.Resolve(ctx, "secret://smtp-password")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected access error, got %v", err)
	}
	if status.Code(errors.Unwrap(err)) != codes.InvalidArgument {
		t.Fatalf("expected wrapped grpc status, got %v", err)
	}
}

func TestResolveHonoursVersionAndProjectOverrides(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values["projects/ops/secrets/smtp-password/versions/3"] = "pinned"

	resolver, err := NewResolver(ctx, WithClient(client), WithProject("shop"), WithFallbackFile(""))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	got, err := resolver.Resolve(ctx, "secret://smtp-password?version=3&project=ops")
	if err != nil || got != "pinned" {
		t.Fatalf("expected pinned value, got %q, %v", got, err)
	}
}

func TestResolveRejectsInvalidReferences(t *testing.T) {
	resolver, err := NewResolver(context.Background(), WithFallbackFile(""))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	for _, ref := range []string{"", "https://example.com/x", "secret://"} {
		if _, err := resolver.Resolve(context.Background(), ref); err == nil {
			t.Fatalf("expected error for %q", ref)
		}
	}
}

func TestPingTreatsMissingProbeAsHealthy(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	resolver, err := NewResolver(ctx, WithClient(client), WithProject("shop"), WithFallbackFile(""))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if err := resolver.Ping(ctx, "secret://healthz"); err != nil {
		t.Fatalf("expected healthy ping, got %v", err)
	}

	client.errs["projects/shop/secrets/healthz/versions/latest"] = status.Error(codes.Unavailable, "down")
	if err := resolver.Ping(ctx, "secret://healthz"); err == nil {
		t.Fatal("expected ping failure when secret manager is unavailable")
	}
}
