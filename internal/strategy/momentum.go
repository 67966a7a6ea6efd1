package strategy

import (
	"fmt"
	"time"
)

// MomentumStrategy buys when the lookback return exceeds the threshold and
// exits when it drops below the negative threshold.
type MomentumStrategy struct {
	lookback  int
	threshold float64

	capital    float64
	position   float64
	inPosition bool
}

// NewMomentum builds a momentum strategy with the given starting capital.
func NewMomentum(capital float64, lookback int, threshold float64) *MomentumStrategy {
	return &MomentumStrategy{
		lookback:  lookback,
		threshold: threshold,
		capital:   capital,
	}
}

func (s *MomentumStrategy) Name() string { return "momentum" }

// Capital returns the free quote balance of the strategy book.
func (s *MomentumStrategy) Capital() float64 { return s.capital }

// Position returns the held base amount of the strategy book.
func (s *MomentumStrategy) Position() float64 { return s.position }

// InPosition reports whether the strategy currently holds a long.
func (s *MomentumStrategy) InPosition() bool { return s.inPosition }

func (s *MomentumStrategy) Signals(closes []float64, now time.Time) []Signal {
	if len(closes) < s.lookback+1 {
		return nil
	}

	price := closes[len(closes)-1]
	momentum := Momentum(closes, s.lookback)

	switch {
	case momentum > s.threshold && !s.inPosition:
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
			Reason: fmt.Sprintf("momentum_up_%+.2f%%", momentum*100),
		}}

	case momentum < -s.threshold && s.inPosition:
		if s.position <= 0 {
			return nil
		}
		s.inPosition = false
		return []Signal{{
			Side:   Sell,
			Price:  price,
			Amount: s.position,
			Time:   now,
			Reason: fmt.Sprintf("momentum_down_%+.2f%%", momentum*100),
		}}
	}
	return nil
}

func (s *MomentumStrategy) Execute(sig Signal) {
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

var _ Strategy = (*MomentumStrategy)(nil)
