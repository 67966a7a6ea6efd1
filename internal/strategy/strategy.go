// Package strategy contains the signal generators shared by the live bot and
// the backtester. Strategies are fed a growing close-price series one bar at
// a time and keep their own book of capital and position, which the caller
// updates through Execute after a fill.
package strategy

import "time"

// Side of a trade signal.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Signal is a single order request emitted by a strategy.
type Signal struct {
	Side   Side      `json:"side"`
	Price  float64   `json:"price"`
	Amount float64   `json:"amount"`
	Time   time.Time `json:"timestamp"`
	Reason string    `json:"reason"`
}

// Cost is the quote value of the signal.
func (s Signal) Cost() float64 { return s.Price * s.Amount }

// Strategy turns price history into order signals.
type Strategy interface {
	Name() string
	// Signals inspects the series up to and including the latest close.
	Signals(closes []float64, now time.Time) []Signal
	// Execute updates the strategy book after a signal was filled.
	Execute(sig Signal)
}

// capitalFraction is how much of the available quote balance a full entry
// uses; the remainder covers fees.
const capitalFraction = 0.95
