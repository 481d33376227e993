package booking

import (
	"fmt"
	"strings"

	"github.com/tourdesk/service-booking/internal/common/domain"
)

// ActorRole identifies who is asking for a transition.
type ActorRole string

const (
	RoleStaff    ActorRole = "staff"
	RoleCustomer ActorRole = "customer"
	RoleSystem   ActorRole = "system"
)

// Actor is the party performing an action. Staff actors carry their user id;
// customers and the system are recorded by sentinel.
type Actor struct {
	Role ActorRole
	ID   string
}

// Staff returns a staff actor for userID.
func Staff(userID string) Actor { return Actor{Role: RoleStaff, ID: userID} }

// Customer is the self-service actor.
var Customer = Actor{Role: RoleCustomer}

// System is the actor for automated transitions such as payment capture.
var System = Actor{Role: RoleSystem}

// String returns the value stored in the audit log's actor column.
func (a Actor) String() string {
	if a.Role == RoleStaff {
		return a.ID
	}
	return string(a.Role)
}

// Validate reports whether the actor is well formed.
func (a Actor) Validate() error {
	switch a.Role {
	case RoleStaff:
		if strings.TrimSpace(a.ID) == "" {
			return domain.NewValidationError("staff actor requires a user id")
		}
		return nil
	case RoleCustomer, RoleSystem:
		return nil
	default:
		return domain.NewValidationError(fmt.Sprintf("unknown actor role: %s", a.Role))
	}
}

// CanTransition reports whether (from, to) is an edge of the transition graph.
// It is total: unknown statuses simply have no edges.
func CanTransition(from, to Status) bool {
	return from.CanTransitionTo(to)
}

// CheckTransition decides whether role may move a booking from one status to
// another. Terminal states reject everything, including re-entering
// themselves. A legal cancellation without a reason is a validation error,
// distinct from a graph violation.
func CheckTransition(from, to Status, role ActorRole, reason string) error {
	if !to.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", to))
	}
	if from.IsTerminal() {
		return domain.NewInvalidTransitionError(string(from), string(to), string(from)+" is terminal")
	}
	if !CanTransition(from, to) {
		return domain.NewInvalidTransitionError(string(from), string(to), "")
	}
	if to == StatusCancelled && strings.TrimSpace(reason) == "" {
		return domain.NewValidationError("cancellation reason is required")
	}
	if !roleAllows(role, from, to) {
		return domain.NewInvalidTransitionError(string(from), string(to),
			fmt.Sprintf("not permitted for %s", role))
	}
	return nil
}

func roleAllows(role ActorRole, from, to Status) bool {
	switch role {
	case RoleStaff:
		return true
	case RoleCustomer:
		return to == StatusCancelled
	case RoleSystem:
		return from == StatusPendingPayment && to == StatusPaid
	default:
		return false
	}
}
