// Package exchange defines the spot-exchange surface the trading loop needs.
package exchange

import (
	"context"
	"math"
)

// LotSize is the order size constraint of a trading pair.
type LotSize struct {
	MinQty  float64
	StepQty float64
}

// stepEpsilon absorbs float division noise so exact multiples of the step
// are not floored one rung down.
const stepEpsilon = 1e-9

// FloorToStep floors qty down to a multiple of step.
func FloorToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	return math.Floor(qty/step+stepEpsilon) * step
}

// Exchange is the minimal spot API the bot trades through. Symbols are in
// exchange form, e.g. "BTCUSDT".
type Exchange interface {
	// DailyCloses returns up to limit daily closing prices, oldest first.
	DailyCloses(ctx context.Context, symbol string, limit int) ([]float64, error)
	// LastPrice returns the latest traded price.
	LastPrice(ctx context.Context, symbol string) (float64, error)
	// FreeBalances returns the free balance of each requested asset.
	FreeBalances(ctx context.Context, assets ...string) (map[string]float64, error)
	// LotSize returns the pair's minimum and step quantity.
	LotSize(ctx context.Context, symbol string) (LotSize, error)
	// MarketBuy and MarketSell place market orders for qty of the base asset.
	MarketBuy(ctx context.Context, symbol string, qty float64) error
	MarketSell(ctx context.Context, symbol string, qty float64) error
}
