// Package market holds OHLCV bar types and data acquisition for a single
// instrument across the two timeframes the pipeline consumes.
package market

import (
	"context"
	"errors"
	"time"
)

// Timeframe identifies one of the two aligned bar streams.
type Timeframe string

const (
	// TF4H is the fast execution timeframe.
	TF4H Timeframe = "4h"
	// TF1D is the slow context timeframe.
	TF1D Timeframe = "1d"
)

// Duration returns the nominal bar interval.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF4H:
		return 4 * time.Hour
	case TF1D:
		return 24 * time.Hour
	}
	return 0
}

// Bar is one closed OHLCV sample. OpenTime orders the sequence; CloseTime is
// the decision timestamp (a bar is only acted on once it has closed).
type Bar struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// ErrDataOrder reports malformed or out-of-order bar history. It is fatal for
// the run that encountered it; missing bars are tolerated, reordering is not.
var ErrDataOrder = errors.New("market: bar history out of order")

// Source provides ordered bar history. Implementations must return bars
// timestamp-ascending; the consumer validates and fails with ErrDataOrder
// otherwise.
type Source interface {
	GetBars(ctx context.Context, symbol string, tf Timeframe, limit int) (*Series, error)
}
