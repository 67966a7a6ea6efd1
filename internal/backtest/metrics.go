package backtest

import (
	"math"

	"github.com/samber/lo"

	"github.com/mkrv/momentum-bot/internal/history"
	"github.com/mkrv/momentum-bot/internal/strategy"
)

// Metrics summarizes a backtest run.
type Metrics struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`
	NetProfit      float64 `json:"net_profit"`
	TotalReturnPct float64 `json:"total_return_pct"`
	CAGRPct        float64 `json:"cagr_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	WinRatePct     float64 `json:"win_rate_pct"`
	TradeCount     int     `json:"trade_count"`
	PeriodDays     float64 `json:"period_days"`
}

// ComputeMetrics derives the summary statistics from an equity curve and the
// trades that produced it.
func ComputeMetrics(curve []EquityPoint, trades []history.Trade, initialCapital float64) Metrics {
	m := Metrics{
		InitialCapital: initialCapital,
		FinalEquity:    initialCapital,
		TradeCount:     len(trades),
	}
	if len(curve) == 0 {
		return m
	}

	m.FinalEquity = curve[len(curve)-1].Equity
	m.NetProfit = m.FinalEquity - initialCapital
	if initialCapital > 0 {
		m.TotalReturnPct = m.NetProfit / initialCapital * 100
	}

	m.PeriodDays = curve[len(curve)-1].Time.Sub(curve[0].Time).Hours() / 24
	if years := m.PeriodDays / 365.25; years > 0 && initialCapital > 0 && m.FinalEquity > 0 {
		m.CAGRPct = (math.Pow(m.FinalEquity/initialCapital, 1/years) - 1) * 100
	}

	m.MaxDrawdownPct = maxDrawdown(curve) * 100
	m.SharpeRatio = sharpe(DailyReturns(curve))
	m.WinRatePct = winRate(trades) * 100
	return m
}

// DailyReturns converts an equity curve into bar-over-bar returns.
func DailyReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	return returns
}

// maxDrawdown is the largest peak-to-trough equity drop, as a fraction.
func maxDrawdown(curve []EquityPoint) float64 {
	var peak, worst float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak == 0 {
			continue
		}
		if dd := (peak - p.Equity) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

// sharpe annualizes the mean/stddev ratio of daily returns over 365 days.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := lo.Sum(returns) / float64(len(returns))
	std := strategy.StdDev(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(365)
}

// winRate matches each sell to the latest prior buy and counts the share of
// profitable round trips.
func winRate(trades []history.Trade) float64 {
	var wins, closed int
	for i, trade := range trades {
		if trade.Side != strategy.Sell {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if trades[j].Side != strategy.Buy {
				continue
			}
			closed++
			if trade.Price > trades[j].Price {
				wins++
			}
			break
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed)
}
