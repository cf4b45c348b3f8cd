package services

import (
	"fmt"
	"strings"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
)

// TransitionPolicyKind names a built-in transition policy.
type TransitionPolicyKind string

const (
	// TransitionPolicyStandard allows forward moves through the lifecycle and
	// cancellation until the order ships.
	TransitionPolicyStandard TransitionPolicyKind = "standard"
	// TransitionPolicyPermissive allows any status to follow any other.
	TransitionPolicyPermissive TransitionPolicyKind = "permissive"
	// TransitionPolicyCustom allows only the configured edges.
	TransitionPolicyCustom TransitionPolicyKind = "custom"
)

var lifecycleRank = map[domain.OrderStatus]int{
	domain.OrderStatusPending:    0,
	domain.OrderStatusConfirmed:  1,
	domain.OrderStatusProcessing: 2,
	domain.OrderStatusShipped:    3,
	domain.OrderStatusDelivered:  4,
}

var cancellableStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:    {},
	domain.OrderStatusConfirmed:  {},
	domain.OrderStatusProcessing: {},
}

// TransitionPolicy decides which status changes an admin may apply.
// Keeping the current status is always allowed. The zero value behaves as the standard policy.
type TransitionPolicy struct {
	kind    TransitionPolicyKind
	allowed map[domain.OrderStatus]map[domain.OrderStatus]struct{}
}

// StandardTransitionPolicy returns the default forward-only policy.
func StandardTransitionPolicy() TransitionPolicy {
	return TransitionPolicy{kind: TransitionPolicyStandard}
}

// PermissiveTransitionPolicy returns a policy accepting every transition.
func PermissiveTransitionPolicy() TransitionPolicy {
	return TransitionPolicy{kind: TransitionPolicyPermissive}
}

// CustomTransitionPolicy builds an allow-list policy from rules such as
// {"pending": "confirmed|cancelled"}.
func CustomTransitionPolicy(rules map[string]string) (TransitionPolicy, error) {
	if len(rules) == 0 {
		return TransitionPolicy{}, fmt.Errorf("transition policy: custom policy requires at least one rule")
	}
	allowed := make(map[domain.OrderStatus]map[domain.OrderStatus]struct{}, len(rules))
	for rawFrom, rawTargets := range rules {
		from := domain.OrderStatus(strings.ToLower(strings.TrimSpace(rawFrom)))
		if !from.Valid() {
			return TransitionPolicy{}, fmt.Errorf("transition policy: unknown status %q", rawFrom)
		}
		targets := allowed[from]
		if targets == nil {
			targets = make(map[domain.OrderStatus]struct{})
			allowed[from] = targets
		}
		for _, rawTo := range strings.Split(rawTargets, "|") {
			rawTo = strings.TrimSpace(rawTo)
			if rawTo == "" {
				continue
			}
			to := domain.OrderStatus(strings.ToLower(rawTo))
			if !to.Valid() {
				return TransitionPolicy{}, fmt.Errorf("transition policy: unknown status %q", rawTo)
			}
			targets[to] = struct{}{}
		}
	}
	return TransitionPolicy{kind: TransitionPolicyCustom, allowed: allowed}, nil
}

// NewTransitionPolicy resolves a configured policy name.
func NewTransitionPolicy(kind string, rules map[string]string) (TransitionPolicy, error) {
	switch TransitionPolicyKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", TransitionPolicyStandard:
		return StandardTransitionPolicy(), nil
	case TransitionPolicyPermissive:
		return PermissiveTransitionPolicy(), nil
	case TransitionPolicyCustom:
		return CustomTransitionPolicy(rules)
	default:
		return TransitionPolicy{}, fmt.Errorf("transition policy: unknown policy %q", kind)
	}
}

// Kind reports the policy name.
func (p TransitionPolicy) Kind() TransitionPolicyKind {
	if p.kind == "" {
		return TransitionPolicyStandard
	}
	return p.kind
}

// Allows reports whether an order may move from one status to another.
func (p TransitionPolicy) Allows(from, to domain.OrderStatus) bool {
	if from == to {
		return true
	}
	switch p.Kind() {
	case TransitionPolicyPermissive:
		return true
	case TransitionPolicyCustom:
		_, ok := p.allowed[from][to]
		return ok
	default:
		if to == domain.OrderStatusCancelled {
			_, ok := cancellableStatuses[from]
			return ok
		}
		fromRank, okFrom := lifecycleRank[from]
		toRank, okTo := lifecycleRank[to]
		return okFrom && okTo && toRank > fromRank
	}
}

// Targets lists the statuses reachable from the given status, in lifecycle order.
func (p TransitionPolicy) Targets(from domain.OrderStatus) []domain.OrderStatus {
	out := make([]domain.OrderStatus, 0, len(domain.OrderStatuses))
	for _, candidate := range domain.OrderStatuses {
		if candidate != from && p.Allows(from, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}
