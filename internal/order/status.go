package order

import (
	"errors"

	"github.com/nvaldezc/food_orders/internal/models"
)

const (
	StatusPending   = "pending"
	StatusCooking   = "cooking"
	StatusReady     = "ready"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"

	// StatusPrepared is a deprecated alias of StatusReady still sent by older
	// kitchen clients. It is normalized on input and never stored.
	StatusPrepared = "prepared"
)

var (
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRoleNotAllowed    = errors.New("role not allowed for this transition")
	ErrConflict          = errors.New("order was modified concurrently")
	ErrNotFound          = errors.New("order not found")
)

// transitions is the single transition table shared by every surface:
// current status -> next status -> roles allowed to drive it.
var transitions = map[string]map[string][]string{
	StatusPending: {
		StatusCooking:   {models.RoleAdmin},
		StatusCancelled: {models.RoleCustomer, models.RoleAdmin},
	},
	StatusCooking: {
		StatusReady:     {models.RoleAdmin},
		StatusCancelled: {models.RoleCustomer, models.RoleAdmin},
	},
	StatusReady: {
		StatusShipped:   {models.RoleDelivery, models.RoleAdmin},
		StatusCancelled: {models.RoleCustomer, models.RoleAdmin},
	},
	StatusShipped: {
		StatusDelivered: {models.RoleDelivery, models.RoleAdmin},
		StatusCancelled: {models.RoleCustomer, models.RoleAdmin},
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Canonical maps the deprecated "prepared" label onto "ready". Any other
// value passes through unchanged.
func Canonical(status string) string {
	if status == StatusPrepared {
		return StatusReady
	}
	return status
}

func IsValid(status string) bool {
	_, ok := transitions[Canonical(status)]
	return ok
}

func IsTerminal(status string) bool {
	next, ok := transitions[Canonical(status)]
	return ok && len(next) == 0
}

// CanTransition validates one step of the lifecycle for the acting role.
// Both statuses are canonicalized first.
func CanTransition(from, to, role string) error {
	from, to = Canonical(from), Canonical(to)
	next, ok := transitions[from]
	if !ok {
		return ErrUnknownStatus
	}
	roles, ok := next[to]
	if !ok {
		return ErrInvalidTransition
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return ErrRoleNotAllowed
}

// Statuses returns every canonical status. Used by validation and tests.
func Statuses() []string {
	return []string{StatusPending, StatusCooking, StatusReady, StatusShipped, StatusDelivered, StatusCancelled}
}
