// Package safety implements the guard rails that keep the bot from trading
// into abnormal market or account conditions: sharp-move detection, a daily
// loss limit, API error streaks and balance anomaly checks.
package safety

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkrv/momentum-bot/internal/notify"
)

// priceWindowSize bounds the rolling window used for sharp-move detection.
// With the default one-hour check interval this covers half a day.
const priceWindowSize = 12

// apiErrorThreshold is how many consecutive API failures trip the emergency stop.
const apiErrorThreshold = 3

// balanceAnomalyDrop is the fraction of equity that, lost between two checks,
// is treated as an anomaly (exchange glitch, fat finger, compromised key).
const balanceAnomalyDrop = 0.5

// Config holds the monitor thresholds, all expressed as fractions.
type Config struct {
	VolatilityAlertThreshold float64 // single-step move that triggers an alert
	VolatilityStopThreshold  float64 // full-window move that halts trading
	DailyLossLimit           float64 // equity loss since day start that pauses trading
}

type sample struct {
	price float64
	at    time.Time
}

// Monitor tracks market and account health across checks. It is used from a
// single goroutine (the trading loop) and needs no locking.
type Monitor struct {
	cfg      Config
	notifier notify.Notifier
	log      zerolog.Logger
	now      func() time.Time

	prices []sample

	dailyStartBalance float64
	dailyStartSet     bool
	lastResetDay      time.Time
	dailyStopped      bool

	apiErrors        int
	lastBalance      float64
	lastBalanceSet   bool
	emergencyStopped bool
}

// NewMonitor builds a monitor. The notifier receives every trip.
func NewMonitor(cfg Config, notifier notify.Notifier, log zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		notifier: notifier,
		log:      log.With().Str("component", "safety").Logger(),
		now:      time.Now,
	}
}

// CheckVolatility records the latest price and reports (alert, stop).
// alert means the last step moved more than the alert threshold; stop means
// the whole window moved more than the stop threshold, which also sets the
// emergency stop flag.
func (m *Monitor) CheckVolatility(price float64) (alert, stop bool) {
	m.prices = append(m.prices, sample{price: price, at: m.now()})
	if len(m.prices) > priceWindowSize {
		m.prices = m.prices[len(m.prices)-priceWindowSize:]
	}
	if len(m.prices) < 2 {
		return false, false
	}

	prev := m.prices[len(m.prices)-2].price
	stepChange := (price - prev) / prev

	if len(m.prices) == priceWindowSize {
		first := m.prices[0]
		windowChange := (price - first.price) / first.price
		if abs(windowChange) >= m.cfg.VolatilityStopThreshold {
			window := m.now().Sub(first.at).Round(time.Minute).String()
			m.log.Warn().Float64("change", windowChange).Str("window", window).
				Msg("sharp move over the full window, halting")
			m.notifier.VolatilityAlert(windowChange*100, window)
			m.notifier.EmergencyStop(fmt.Sprintf("%+.2f%% move within %s", windowChange*100, window))
			m.emergencyStopped = true
			return true, true
		}
	}

	if abs(stepChange) >= m.cfg.VolatilityAlertThreshold {
		m.log.Warn().Float64("change", stepChange).Msg("sharp move since last check")
		m.notifier.VolatilityAlert(stepChange*100, "since last check")
		return true, false
	}
	return false, false
}

// CheckDailyLoss tracks equity against the balance recorded at the start of
// the UTC day and reports whether trading should pause for the rest of it.
func (m *Monitor) CheckDailyLoss(balance float64) bool {
	today := m.now().UTC().Truncate(24 * time.Hour)

	if !today.Equal(m.lastResetDay) {
		m.lastResetDay = today
		m.dailyStartBalance = balance
		m.dailyStartSet = true
		m.dailyStopped = false
		m.log.Info().Float64("balance", balance).Msg("daily loss tracking reset")
		return false
	}

	if !m.dailyStartSet {
		m.dailyStartBalance = balance
		m.dailyStartSet = true
		return false
	}
	if m.dailyStartBalance == 0 {
		return m.dailyStopped
	}

	lossPct := (balance - m.dailyStartBalance) / m.dailyStartBalance
	if lossPct < -m.cfg.DailyLossLimit {
		if !m.dailyStopped {
			m.log.Warn().Float64("loss_pct", lossPct*100).Msg("daily loss limit reached")
			m.notifier.DailyLossLimit(lossPct * 100)
			m.dailyStopped = true
		}
		return true
	}
	return m.dailyStopped
}

// RecordAPIError counts a failed exchange call; a streak trips the emergency
// stop. It returns true when the stop tripped on this call.
func (m *Monitor) RecordAPIError() bool {
	m.apiErrors++
	m.log.Warn().Int("count", m.apiErrors).Msg("exchange API error recorded")

	if m.apiErrors >= apiErrorThreshold && !m.emergencyStopped {
		m.log.Error().Msg("consecutive API errors, halting")
		m.notifier.EmergencyStop(fmt.Sprintf("%d consecutive API errors", m.apiErrors))
		m.emergencyStopped = true
		return true
	}
	return false
}

// ResetAPIErrors clears the error streak after a successful call.
func (m *Monitor) ResetAPIErrors() {
	if m.apiErrors > 0 {
		m.log.Debug().Msg("API error streak cleared")
		m.apiErrors = 0
	}
}

// CheckBalanceAnomaly warns when equity halves between two checks.
func (m *Monitor) CheckBalanceAnomaly(balance float64) bool {
	if !m.lastBalanceSet {
		m.lastBalance = balance
		m.lastBalanceSet = true
		return false
	}
	if m.lastBalance == 0 {
		m.lastBalance = balance
		return false
	}

	change := (balance - m.lastBalance) / m.lastBalance
	if change < -balanceAnomalyDrop {
		m.log.Error().Float64("change", change*100).Msg("balance dropped abnormally")
		m.notifier.Error(fmt.Sprintf("Balance anomaly: %+.2f%% since last check", change*100))
		return true
	}
	m.lastBalance = balance
	return false
}

// TradingHalted reports whether the emergency stop or the daily limit is active.
func (m *Monitor) TradingHalted() bool {
	return m.emergencyStopped || m.dailyStopped
}

// EmergencyStopped reports whether the hard stop is active. Unlike the daily
// pause it never resets on its own; restarting the service clears it.
func (m *Monitor) EmergencyStopped() bool {
	return m.emergencyStopped
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
