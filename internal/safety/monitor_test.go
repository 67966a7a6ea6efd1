package safety

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrv/momentum-bot/internal/notify"
)

// spyNotifier records which events fired.
type spyNotifier struct {
	notify.Noop
	mu             sync.Mutex
	volatility     int
	emergencyStops []string
	dailyLimits    []float64
	errors         []string
}

func (s *spyNotifier) VolatilityAlert(float64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volatility++
}

func (s *spyNotifier) EmergencyStop(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergencyStops = append(s.emergencyStops, reason)
}

func (s *spyNotifier) DailyLossLimit(lossPct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyLimits = append(s.dailyLimits, lossPct)
}

func (s *spyNotifier) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func newTestMonitor(spy *spyNotifier) *Monitor {
	return NewMonitor(Config{
		VolatilityAlertThreshold: 0.05,
		VolatilityStopThreshold:  0.10,
		DailyLossLimit:           0.05,
	}, spy, zerolog.Nop())
}

func TestCheckVolatilityStepAlert(t *testing.T) {
	spy := &spyNotifier{}
	m := newTestMonitor(spy)

	alert, stop := m.CheckVolatility(100)
	assert.False(t, alert)
	assert.False(t, stop)

	// 6% jump between two checks triggers the alert but not the stop.
	alert, stop = m.CheckVolatility(106)
	assert.True(t, alert)
	assert.False(t, stop)
	assert.Equal(t, 1, spy.volatility)
	assert.False(t, m.TradingHalted())
}

func TestCheckVolatilityWindowStop(t *testing.T) {
	spy := &spyNotifier{}
	m := newTestMonitor(spy)

	// Fill the window with a slow grind that never trips the step alert but
	// accumulates past the 10% window threshold.
	price := 100.0
	var stopped bool
	for i := 0; i < priceWindowSize+2; i++ {
		price *= 1.02
		_, stop := m.CheckVolatility(price)
		if stop {
			stopped = true
			break
		}
	}

	require.True(t, stopped)
	assert.True(t, m.TradingHalted())
	assert.True(t, m.EmergencyStopped())
	require.NotEmpty(t, spy.emergencyStops)
	assert.Contains(t, spy.emergencyStops[0], "move within")
}

func TestCheckDailyLoss(t *testing.T) {
	spy := &spyNotifier{}
	m := newTestMonitor(spy)
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	assert.False(t, m.CheckDailyLoss(10000)) // first call sets the day-start balance
	assert.False(t, m.CheckDailyLoss(9700))  // -3%, within the limit

	assert.True(t, m.CheckDailyLoss(9400)) // -6%, trips
	assert.True(t, m.TradingHalted())
	require.Len(t, spy.dailyLimits, 1)
	assert.InDelta(t, -6.0, spy.dailyLimits[0], 0.01)

	// Still stopped for the rest of the day, but no duplicate notification.
	assert.True(t, m.CheckDailyLoss(9400))
	assert.Len(t, spy.dailyLimits, 1)

	// Next UTC day resets the pause and the reference balance.
	base = base.Add(24 * time.Hour)
	assert.False(t, m.CheckDailyLoss(9400))
	assert.False(t, m.TradingHalted())
	assert.False(t, m.CheckDailyLoss(9000)) // -4.3% from the new start
}

func TestAPIErrorStreak(t *testing.T) {
	spy := &spyNotifier{}
	m := newTestMonitor(spy)

	assert.False(t, m.RecordAPIError())
	assert.False(t, m.RecordAPIError())
	m.ResetAPIErrors()

	// Streak restarts after a success.
	assert.False(t, m.RecordAPIError())
	assert.False(t, m.RecordAPIError())
	assert.True(t, m.RecordAPIError())
	assert.True(t, m.EmergencyStopped())
	require.Len(t, spy.emergencyStops, 1)
	assert.Contains(t, spy.emergencyStops[0], "3 consecutive API errors")
}

func TestCheckBalanceAnomaly(t *testing.T) {
	spy := &spyNotifier{}
	m := newTestMonitor(spy)

	assert.False(t, m.CheckBalanceAnomaly(10000))
	assert.False(t, m.CheckBalanceAnomaly(9000)) // -10%, fine

	assert.True(t, m.CheckBalanceAnomaly(4000)) // -55% since last check
	require.Len(t, spy.errors, 1)
	assert.Contains(t, spy.errors[0], "Balance anomaly")
}
