package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/googleapis/gax-go/v2"
)

const (
	orderNumberPrefix             = "OD"
	defaultOrderNumberAttempts    = 10
	defaultOrderNumberBackoffBase = 25 * time.Millisecond
	defaultOrderNumberBackoffMax  = 250 * time.Millisecond
)

// OrderNumberLookup reports whether an order number is already taken.
type OrderNumberLookup interface {
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
}

// OrderNumberGeneratorDeps configures an OrderNumberGenerator.
type OrderNumberGeneratorDeps struct {
	Lookup         OrderNumberLookup
	Clock          func() time.Time
	Random         func(n int) int
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	Sleep          func(ctx context.Context, d time.Duration) error
}

// OrderNumberGenerator produces order numbers shaped OD + 8 timestamp digits + 3 random digits.
// A candidate is retried when the lookup reports it taken or when the claim callback reports
// a storage conflict, pausing between attempts with exponential backoff.
type OrderNumberGenerator struct {
	lookup      OrderNumberLookup
	clock       func() time.Time
	random      func(n int) int
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewOrderNumberGenerator constructs a generator, filling unset deps with defaults.
func NewOrderNumberGenerator(deps OrderNumberGeneratorDeps) (*OrderNumberGenerator, error) {
	if deps.Lookup == nil {
		return nil, errors.New("order number generator: lookup is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	random := deps.Random
	if random == nil {
		random = rand.IntN
	}
	attempts := deps.MaxAttempts
	if attempts <= 0 {
		attempts = defaultOrderNumberAttempts
	}
	initial := deps.BackoffInitial
	if initial <= 0 {
		initial = defaultOrderNumberBackoffBase
	}
	maxPause := deps.BackoffMax
	if maxPause < initial {
		maxPause = max(defaultOrderNumberBackoffMax, initial)
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = gax.Sleep
	}

	return &OrderNumberGenerator{
		lookup:      deps.Lookup,
		clock:       clock,
		random:      random,
		maxAttempts: attempts,
		initial:     initial,
		max:         maxPause,
		sleep:       sleep,
	}, nil
}

// Candidate formats an order number for the given instant.
func (g *OrderNumberGenerator) Candidate(now time.Time) string {
	millis := now.UnixMilli() % 100_000_000
	if millis < 0 {
		millis = -millis
	}
	suffix := g.random(1000)
	if suffix < 0 || suffix > 999 {
		suffix = 0
	}
	return fmt.Sprintf("%s%08d%03d", orderNumberPrefix, millis, suffix)
}

// Generate finds an unused order number and hands it to claim, which is expected to
// persist it. Lookup failures and non-conflict claim failures are returned as-is.
func (g *OrderNumberGenerator) Generate(ctx context.Context, claim func(ctx context.Context, orderNumber string) error) (string, error) {
	if claim == nil {
		return "", errors.New("order number generator: claim is required")
	}

	backoff := gax.Backoff{Initial: g.initial, Max: g.max, Multiplier: 2}
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate := g.Candidate(g.clock())

		taken, err := g.lookup.ExistsByOrderNumber(ctx, candidate)
		if err != nil {
			return "", mapRepositoryError("order", err, nil, nil)
		}
		if !taken {
			err = claim(ctx, candidate)
			if err == nil {
				return candidate, nil
			}
			if !isRepositoryConflict(err) && !errors.Is(err, ErrOrderConflict) {
				return "", err
			}
		}

		if attempt == g.maxAttempts {
			break
		}
		if err := g.sleep(ctx, backoff.Pause()); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: no unused number after %d attempts", ErrOrderNumberGenerationFailed, g.maxAttempts)
}
