package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestMomentumIndicator(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		lookback int
		expected float64
	}{
		{
			name:     "series too short",
			closes:   []float64{100, 101},
			lookback: 5,
			expected: 0,
		},
		{
			name:     "ten percent rise",
			closes:   []float64{100, 102, 104, 110},
			lookback: 3,
			expected: 0.10,
		},
		{
			name:     "five percent drop",
			closes:   []float64{100, 99, 97, 95},
			lookback: 3,
			expected: -0.05,
		},
		{
			name:     "zero reference price",
			closes:   []float64{0, 50, 60},
			lookback: 2,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Momentum(tt.closes, tt.lookback), 1e-9)
		})
	}
}

func TestStdDevAndZScore(t *testing.T) {
	assert.Zero(t, StdDev([]float64{5}))
	assert.InDelta(t, math.Sqrt(2.5), StdDev([]float64{1, 2, 3, 4, 5}), 1e-9)

	// Flat series has no deviation, z-score must stay 0 instead of dividing by zero.
	assert.Zero(t, ZScore([]float64{7, 7, 7, 7}, 4))

	// Last value two deviations below a synthetic mean.
	closes := []float64{10, 12, 10, 12, 10, 12, 10, 12, 2}
	assert.Negative(t, ZScore(closes, 9))
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Zero(t, AnnualizedVolatility([]float64{100}))
	flat := []float64{100, 100, 100, 100}
	assert.Zero(t, AnnualizedVolatility(flat))

	noisy := []float64{100, 110, 95, 108, 92}
	assert.Positive(t, AnnualizedVolatility(noisy))
}

// rising returns a series long enough for lookback with a final jump of pct.
func rising(lookback int, pct float64) []float64 {
	closes := make([]float64, lookback+1)
	for i := range closes {
		closes[i] = 100
	}
	closes[len(closes)-1] = 100 * (1 + pct)
	return closes
}

func TestMomentumStrategyEntryAndExit(t *testing.T) {
	s := NewMomentum(10000, 20, 0.02)

	// Below threshold: no trade.
	assert.Empty(t, s.Signals(rising(20, 0.01), testTime))

	// Above threshold: enter with 95% of capital.
	sigs := s.Signals(rising(20, 0.05), testTime)
	require.Len(t, sigs, 1)
	buy := sigs[0]
	assert.Equal(t, Buy, buy.Side)
	assert.InDelta(t, 10000*0.95/105, buy.Amount, 1e-9)
	assert.Contains(t, buy.Reason, "momentum_up")
	s.Execute(buy)
	assert.True(t, s.InPosition())
	assert.InDelta(t, 10000*0.05, s.Capital(), 1e-6)

	// Already long: another bullish bar is ignored.
	assert.Empty(t, s.Signals(rising(20, 0.06), testTime))

	// Bearish momentum: exit the full position.
	sigs = s.Signals(rising(20, -0.05), testTime)
	require.Len(t, sigs, 1)
	sell := sigs[0]
	assert.Equal(t, Sell, sell.Side)
	assert.InDelta(t, buy.Amount, sell.Amount, 1e-9)
	s.Execute(sell)
	assert.False(t, s.InPosition())
	assert.Zero(t, s.Position())
}

func TestMomentumStrategyShortSeries(t *testing.T) {
	s := NewMomentum(10000, 20, 0.02)
	assert.Empty(t, s.Signals([]float64{100, 105}, testTime))
}

func TestMeanReversionStrategy(t *testing.T) {
	s := NewMeanReversion(10000, 10, 2.0)

	stable := []float64{100, 101, 99, 100, 101, 99, 100, 101, 99, 100}
	assert.Empty(t, s.Signals(stable, testTime))

	// Crash far below the rolling mean: buy.
	crashed := []float64{100, 101, 99, 100, 101, 99, 100, 101, 99, 70}
	sigs := s.Signals(crashed, testTime)
	require.Len(t, sigs, 1)
	require.Equal(t, Buy, sigs[0].Side)
	assert.Contains(t, sigs[0].Reason, "oversold")
	s.Execute(sigs[0])

	// Price reverts toward the mean: sell everything.
	reverted := append(crashed[1:], 95)
	sigs = s.Signals(reverted, testTime)
	require.Len(t, sigs, 1)
	assert.Equal(t, Sell, sigs[0].Side)
	assert.Contains(t, sigs[0].Reason, "mean_revert")
}

func TestGridStrategyBuysFallingSellsRising(t *testing.T) {
	s := NewGrid(10000, 10, 5, 15.0)

	// Warm up: establishes the window and lastPrice without trading.
	warm := []float64{100, 101, 100, 101, 100}
	assert.Empty(t, s.Signals(warm, testTime))

	// A sharp drop crosses lower grid levels: buys appear.
	down := append(append([]float64{}, warm...), 90)
	buys := s.Signals(down, testTime)
	require.NotEmpty(t, buys)
	for _, sig := range buys {
		assert.Equal(t, Buy, sig.Side)
		assert.Equal(t, "grid_buy", sig.Reason)
		s.Execute(sig)
	}
	assert.Positive(t, s.position)

	// Recovery above the old price crosses levels upward: sells appear.
	up := append(append([]float64{}, down...), 103)
	sells := s.Signals(up, testTime)
	require.NotEmpty(t, sells)
	for _, sig := range sells {
		assert.Equal(t, Sell, sig.Side)
		s.Execute(sig)
	}
}

func TestGridStrategyStopLoss(t *testing.T) {
	s := NewGrid(10000, 10, 5, 15.0)

	warm := []float64{100, 101, 100, 101, 100}
	s.Signals(warm, testTime)

	down := append(append([]float64{}, warm...), 95)
	for _, sig := range s.Signals(down, testTime) {
		s.Execute(sig)
	}
	require.Positive(t, s.position)

	// 20% below entry: single liquidation signal.
	crash := append(append([]float64{}, down...), 76)
	sigs := s.Signals(crash, testTime)
	require.Len(t, sigs, 1)
	assert.Equal(t, Sell, sigs[0].Side)
	assert.Equal(t, "stop_loss", sigs[0].Reason)
	assert.InDelta(t, s.position, sigs[0].Amount, 1e-9)

	s.Execute(sigs[0])
	assert.Zero(t, s.position)
	assert.False(t, s.hasEntry)
}
