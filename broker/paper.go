package broker

import (
	"context"
	"fmt"
)

// Paper simulates fills with symmetric basis-point slippage: opens fill above
// the reference price, closes below it. Fill IDs are a per-instance sequence
// so replays are deterministic.
type Paper struct {
	SlippageBps float64
	seq         int
}

// NewPaper returns a paper execution target.
func NewPaper(slippageBps float64) *Paper {
	return &Paper{SlippageBps: slippageBps}
}

func (p *Paper) Submit(_ context.Context, o Order) (Fill, error) {
	if o.Qty <= 0 {
		return Fill{}, &Rejection{Reason: "non_positive_qty"}
	}
	if o.Price <= 0 {
		return Fill{}, &Rejection{Reason: "non_positive_price"}
	}

	slip := p.SlippageBps / 10_000.0
	price := o.Price
	switch o.Action {
	case ActionOpen:
		price = o.Price * (1.0 + slip)
	case ActionClose:
		price = o.Price * (1.0 - slip)
	default:
		return Fill{}, &Rejection{Reason: "unknown_action"}
	}

	p.seq++
	return Fill{
		ID:     fmt.Sprintf("T%06d", p.seq),
		Time:   o.Time,
		Symbol: o.Symbol,
		Action: o.Action,
		Price:  price,
		Qty:    o.Qty,
	}, nil
}
