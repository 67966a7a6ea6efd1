// Package backtest replays strategies over historical daily candles and
// measures how they would have performed.
package backtest

import (
	"errors"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mkrv/momentum-bot/internal/history"
	"github.com/mkrv/momentum-bot/internal/strategy"
)

// Candle is one historical OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// EquityPoint is the account snapshot after one bar.
type EquityPoint struct {
	Time          time.Time `json:"timestamp"`
	Equity        float64   `json:"equity"`
	Capital       float64   `json:"capital"`
	PositionValue float64   `json:"position_value"`
}

// Engine books simulated fills against a cash/position ledger.
type Engine struct {
	initialCapital float64
	capital        float64
	position       float64
	trades         []history.Trade
	curve          []EquityPoint
}

// NewEngine starts a ledger with the given capital.
func NewEngine(initialCapital float64) *Engine {
	return &Engine{initialCapital: initialCapital, capital: initialCapital}
}

// Reset returns the ledger to its initial state.
func (e *Engine) Reset() {
	e.capital = e.initialCapital
	e.position = 0
	e.trades = nil
	e.curve = nil
}

// Execute books a signal. Buys are ignored when unaffordable, sells when the
// position is too small; it reports whether the fill was booked.
func (e *Engine) Execute(sig strategy.Signal) bool {
	switch sig.Side {
	case strategy.Buy:
		cost := sig.Cost()
		if cost > e.capital {
			return false
		}
		e.capital -= cost
		e.position += sig.Amount
		e.trades = append(e.trades, history.Trade{
			Time:   sig.Time,
			Side:   strategy.Buy,
			Price:  sig.Price,
			Amount: sig.Amount,
			Cost:   cost,
			Reason: sig.Reason,
		})
		return true

	case strategy.Sell:
		if sig.Amount > e.position {
			return false
		}
		revenue := sig.Cost()
		e.capital += revenue
		e.position -= sig.Amount
		e.trades = append(e.trades, history.Trade{
			Time:    sig.Time,
			Side:    strategy.Sell,
			Price:   sig.Price,
			Amount:  sig.Amount,
			Revenue: revenue,
			Reason:  sig.Reason,
		})
		return true
	}
	return false
}

// Equity is cash plus the position marked at price.
func (e *Engine) Equity(price float64) float64 {
	return e.capital + e.position*price
}

// RecordEquity appends an equity snapshot for the bar.
func (e *Engine) RecordEquity(price float64, ts time.Time) {
	e.curve = append(e.curve, EquityPoint{
		Time:          ts,
		Equity:        e.Equity(price),
		Capital:       e.capital,
		PositionValue: e.position * price,
	})
}

// Trades returns the booked trades.
func (e *Engine) Trades() []history.Trade { return e.trades }

// EquityCurve returns the recorded equity snapshots.
func (e *Engine) EquityCurve() []EquityPoint { return e.curve }

// Result bundles everything a backtest produced.
type Result struct {
	Strategy string
	Metrics  Metrics
	Trades   []history.Trade
	Curve    []EquityPoint
}

// Run replays the strategy over the candles bar by bar.
func Run(candles []Candle, strat strategy.Strategy, initialCapital float64, showProgress bool) (*Result, error) {
	if len(candles) == 0 {
		return nil, errors.New("no candles to backtest")
	}

	engine := NewEngine(initialCapital)
	closes := make([]float64, 0, len(candles))

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.Default(int64(len(candles)), "backtesting")
	}

	for _, candle := range candles {
		closes = append(closes, candle.Close)

		for _, sig := range strat.Signals(closes, candle.Time) {
			// Keep the strategy book aligned with the ledger: only booked
			// fills feed back into the strategy.
			if engine.Execute(sig) {
				strat.Execute(sig)
			}
		}
		engine.RecordEquity(candle.Close, candle.Time)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	return &Result{
		Strategy: strat.Name(),
		Metrics:  ComputeMetrics(engine.EquityCurve(), engine.Trades(), initialCapital),
		Trades:   engine.Trades(),
		Curve:    engine.EquityCurve(),
	}, nil
}
