package strategy

import (
	"time"
)

// Grid range bounds: the band around the current price scales with realized
// volatility but stays between 15% and 30%.
const (
	gridRangeMin = 0.15
	gridRangeMax = 0.30
)

// GridStrategy trades a dynamic grid: the band is recentered from realized
// volatility, position size shrinks when the market gets noisy, and a
// stop-loss liquidates the whole book.
type GridStrategy struct {
	gridNum     int
	volWindow   int
	stopLossPct float64

	capital    float64
	position   float64
	gridPrices []float64
	lastPrice  float64
	hasLast    bool
	entryPrice float64
	hasEntry   bool
}

// NewGrid builds a grid strategy with the given starting capital.
func NewGrid(capital float64, gridNum, volWindow int, stopLossPct float64) *GridStrategy {
	return &GridStrategy{
		gridNum:     gridNum,
		volWindow:   volWindow,
		stopLossPct: stopLossPct,
		capital:     capital,
	}
}

func (s *GridStrategy) Name() string { return "grid" }

// dynamicRange derives the grid band from annualized volatility.
func (s *GridStrategy) dynamicRange(window []float64) (lower, upper float64) {
	price := window[len(window)-1]
	vol := AnnualizedVolatility(window)

	rangePct := vol
	if rangePct < gridRangeMin {
		rangePct = gridRangeMin
	}
	if rangePct > gridRangeMax {
		rangePct = gridRangeMax
	}
	return price * (1 - rangePct), price * (1 + rangePct)
}

// positionSize damps the per-entry budget when bar-to-bar volatility rises.
func (s *GridStrategy) positionSize(window []float64) float64 {
	vol := StdDev(PctChanges(window))
	return s.capital * 0.5 / (1 + vol*10)
}

func (s *GridStrategy) Signals(closes []float64, now time.Time) []Signal {
	price := closes[len(closes)-1]

	// Stop-loss dumps the whole position before any grid logic runs.
	if s.hasEntry && s.position > 0 {
		lossPct := (price - s.entryPrice) / s.entryPrice * 100
		if lossPct < -s.stopLossPct {
			sig := Signal{Side: Sell, Price: price, Amount: s.position, Time: now, Reason: "stop_loss"}
			s.lastPrice, s.hasLast = price, true
			return []Signal{sig}
		}
	}

	var signals []Signal
	if len(closes) >= s.volWindow {
		window := closes[len(closes)-s.volWindow:]
		lower, upper := s.dynamicRange(window)

		step := (upper - lower) / float64(s.gridNum)
		s.gridPrices = s.gridPrices[:0]
		for i := 0; i <= s.gridNum; i++ {
			s.gridPrices = append(s.gridPrices, lower+step*float64(i))
		}

		budget := s.positionSize(window)

		if s.hasLast {
			for _, level := range s.gridPrices {
				switch {
				// Price fell through a level: buy the rung.
				case s.lastPrice > level && level >= price:
					if s.capital <= 0 {
						continue
					}
					amount := budget / float64(s.gridNum) / price
					if max := s.capital / price * 0.9; amount > max {
						amount = max
					}
					if amount > 0 {
						signals = append(signals, Signal{
							Side: Buy, Price: price, Amount: amount, Time: now, Reason: "grid_buy",
						})
						if !s.hasEntry {
							s.entryPrice, s.hasEntry = price, true
						}
					}

				// Price rose through a level: sell a rung.
				case s.lastPrice < level && level <= price:
					if s.position <= 0 {
						continue
					}
					amount := s.position / (float64(s.gridNum) / 2)
					if max := s.position * 0.9; amount > max {
						amount = max
					}
					if amount > 0 {
						signals = append(signals, Signal{
							Side: Sell, Price: price, Amount: amount, Time: now, Reason: "grid_sell",
						})
					}
				}
			}
		}
	}

	s.lastPrice, s.hasLast = price, true
	return signals
}

func (s *GridStrategy) Execute(sig Signal) {
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
			if s.position == 0 {
				s.hasEntry = false
			}
		}
	}
}

var _ Strategy = (*GridStrategy)(nil)
