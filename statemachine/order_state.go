package statemachine

import (
	"errors"
	"fmt"
	"strings"

	"foodconnect/models"
)

// Actor identifies who is asking for a transition
type Actor string

const (
	ActorVendor   Actor = "vendor"
	ActorDriver   Actor = "driver"
	ActorCustomer Actor = "customer"
)

// ErrIllegalTransition is matched by every *IllegalTransitionError
var ErrIllegalTransition = errors.New("illegal order status transition")

// IllegalTransitionError describes a rejected transition
type IllegalTransitionError struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
	Valid []models.OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s → %s is not allowed for actor '%s'. Valid transitions from %s are: %s",
		e.From, e.To, e.Actor, e.From, describe(e.Valid))
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor Actor              `json:"actor"`
}

// progression is the forward path; cancelled sits beside it
var progression = []models.OrderStatus{
	models.StatusPending,
	models.StatusAccepted,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusDelivering,
	models.StatusCompleted,
}

// validTransitions is the authoritative state machine definition
var validTransitions = buildTransitions()

func buildTransitions() []Transition {
	var ts []Transition
	for i, from := range progression {
		if IsTerminal(from) {
			continue
		}
		// Vendors may move forward, skipping steps, or cancel
		for _, to := range progression[i+1:] {
			ts = append(ts, Transition{From: from, To: to, Actor: ActorVendor})
		}
		ts = append(ts, Transition{From: from, To: models.StatusCancelled, Actor: ActorVendor})
	}

	// Drivers collect ready orders and complete the drop-off
	ts = append(ts,
		Transition{From: models.StatusReady, To: models.StatusDelivering, Actor: ActorDriver},
		Transition{From: models.StatusDelivering, To: models.StatusCompleted, Actor: ActorDriver},
	)

	// Customers can cancel until the kitchen starts preparing
	ts = append(ts,
		Transition{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCustomer},
		Transition{From: models.StatusAccepted, To: models.StatusCancelled, Actor: ActorCustomer},
	)
	return ts
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// IsTerminal reports whether no transition leaves status
func IsTerminal(status models.OrderStatus) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled
}

// ValidTransitionsFrom returns the states actor may move an order in status to
func ValidTransitionsFrom(status models.OrderStatus, actor Actor) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == status && t.Actor == actor {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return &IllegalTransitionError{
		From:  from,
		To:    to,
		Actor: actor,
		Valid: ValidTransitionsFrom(from, actor),
	}
}

// Transitions returns the full state machine for documentation
func Transitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}

func describe(nexts []models.OrderStatus) string {
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
