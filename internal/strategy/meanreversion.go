package strategy

import (
	"fmt"
	"time"
)

// reentryZScore is where a mean-reversion long is considered reverted.
const reentryZScore = -0.5

// MeanReversionStrategy fades extremes: it buys when the close falls more
// than stdThreshold deviations below its rolling mean and sells once the
// price reverts toward it. Long only; crypto spot has no cheap short side.
type MeanReversionStrategy struct {
	maPeriod     int
	stdThreshold float64

	capital    float64
	position   float64
	inPosition bool
}

// NewMeanReversion builds a mean-reversion strategy with the given capital.
func NewMeanReversion(capital float64, maPeriod int, stdThreshold float64) *MeanReversionStrategy {
	return &MeanReversionStrategy{
		maPeriod:     maPeriod,
		stdThreshold: stdThreshold,
		capital:      capital,
	}
}

func (s *MeanReversionStrategy) Name() string { return "mean_reversion" }

func (s *MeanReversionStrategy) Signals(closes []float64, now time.Time) []Signal {
	if len(closes) < s.maPeriod {
		return nil
	}

	price := closes[len(closes)-1]
	z := ZScore(closes, s.maPeriod)

	switch {
	case z < -s.stdThreshold && !s.inPosition:
		amount := s.capital * capitalFraction / price
		if amount <= 0 {
			return nil
		}
		s.inPosition = true
		return []Signal{{
			Side:   Buy,
			Price:  price,
			Amount: amount,
			Time:   now,
			Reason: fmt.Sprintf("oversold_z=%.2f", z),
		}}

	case z > reentryZScore && s.inPosition:
		if s.position <= 0 {
			return nil
		}
		s.inPosition = false
		return []Signal{{
			Side:   Sell,
			Price:  price,
			Amount: s.position,
			Time:   now,
			Reason: fmt.Sprintf("mean_revert_z=%.2f", z),
		}}
	}
	return nil
}

func (s *MeanReversionStrategy) Execute(sig Signal) {
	switch sig.Side {
	case Buy:
		if cost := sig.Cost(); cost <= s.capital {
			s.capital -= cost
			s.position += sig.Amount
		}
	case Sell:
		if sig.Amount <= s.position {
			s.capital += sig.Cost()
			s.position -= sig.Amount
		}
	}
}

var _ Strategy = (*MeanReversionStrategy)(nil)
