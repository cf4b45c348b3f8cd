package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid order data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates the transition policy rejected a status change.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates a duplicate or concurrently modified order.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderCustomerNotFound indicates the placing user has no stored profile.
	ErrOrderCustomerNotFound = errors.New("order: customer profile not found")
	// ErrIncompleteShippingProfile indicates the placing user's profile lacks shipping fields.
	ErrIncompleteShippingProfile = errors.New("order: incomplete shipping profile")
	// ErrOrderNumberGenerationFailed indicates no unused order number was found within the retry budget.
	ErrOrderNumberGenerationFailed = errors.New("order: order number generation failed")

	// ErrCartInvalidInput signals the caller provided invalid cart data.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartEmpty indicates the cart is missing or has no items.
	ErrCartEmpty = errors.New("cart: cart is empty")
	// ErrCartConflict indicates the cart changed while it was being written.
	ErrCartConflict = errors.New("cart: conflict")
	// ErrCartUnavailableProduct indicates the product cannot be added to a cart.
	ErrCartUnavailableProduct = errors.New("cart: product unavailable")

	// ErrProductNotFound indicates the catalog has no visible product for the reference.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrCatalogInvalidInput signals an invalid catalog query.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")

	// ErrNotificationNotFound indicates the notification is absent or owned by another user.
	ErrNotificationNotFound = errors.New("notification: not found")
	// ErrNotificationInvalidInput signals an invalid notification request.
	ErrNotificationInvalidInput = errors.New("notification: invalid input")
)

// ValidationError enumerates per-field problems. It unwraps to the owning service's
// invalid-input sentinel so callers can match either.
type ValidationError struct {
	kind       error
	violations map[string]string
}

func newValidationError(kind error) *ValidationError {
	return &ValidationError{kind: kind, violations: make(map[string]string)}
}

func (e *ValidationError) add(field, reason string) {
	if _, exists := e.violations[field]; exists {
		return
	}
	e.violations[field] = reason
}

func (e *ValidationError) empty() bool {
	return e == nil || len(e.violations) == 0
}

// Error implements error.
func (e *ValidationError) Error() string {
	fields := e.Fields()
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+e.violations[field])
	}
	return fmt.Sprintf("%v: %s", e.kind, strings.Join(parts, "; "))
}

// Unwrap exposes the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.kind
}

// Fields returns the offending field names in sorted order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.violations))
	for field := range e.violations {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Violations returns a copy of the field to reason map.
func (e *ValidationError) Violations() map[string]string {
	out := make(map[string]string, len(e.violations))
	for k, v := range e.violations {
		out[k] = v
	}
	return out
}

// IncompleteProfileError lists the shipping fields missing from the customer profile.
type IncompleteProfileError struct {
	Missing []string
}

// Error implements error.
func (e *IncompleteProfileError) Error() string {
	return fmt.Sprintf("%v: missing %s", ErrIncompleteShippingProfile, strings.Join(e.Missing, ", "))
}

// Unwrap exposes ErrIncompleteShippingProfile.
func (e *IncompleteProfileError) Unwrap() error {
	return ErrIncompleteShippingProfile
}

func mapRepositoryError(scope string, err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound() && notFound != nil:
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict() && conflict != nil:
			return fmt.Errorf("%w: %v", conflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%s: repository unavailable: %w", scope, err)
		}
	}

	return err
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepositoryConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
