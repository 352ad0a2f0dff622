// Package broker defines the execution target contract. Paper and live
// implementations are interchangeable collaborators behind one interface;
// the core never sees margin handling or order-book mechanics.
package broker

import (
	"context"
	"fmt"
	"time"
)

// Action distinguishes position-opening from position-closing orders.
type Action string

const (
	ActionOpen  Action = "OPEN"
	ActionClose Action = "CLOSE"
)

// Order is a sized order handed to an execution target. Price is the
// reference price; the target decides the actual fill (slippage, spread).
type Order struct {
	Time   time.Time
	Symbol string
	Action Action
	Price  float64
	Qty    float64
	Stop   float64 // protective stop, open orders only
	Target float64 // profit target, open orders only
	Reason string  // close orders carry the exit reason
}

// Fill is the immutable record of an executed order.
type Fill struct {
	ID     string
	Time   time.Time
	Symbol string
	Action Action
	Price  float64
	Qty    float64
}

// Rejection is a collaborator-reported refusal. Non-fatal: the position state
// rolls back to whatever it was before the submit.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("broker: order rejected: %s", r.Reason)
}

// Target executes sized orders. Submit returns either a Fill or a *Rejection
// error; any other error is a transport problem.
type Target interface {
	Submit(ctx context.Context, o Order) (Fill, error)
}
