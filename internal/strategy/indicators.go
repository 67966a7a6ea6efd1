package strategy

import (
	"math"

	"github.com/samber/lo"
)

// Momentum returns the fractional return over the lookback window:
// close[t] / close[t-lookback] - 1. Zero when the series is too short.
func Momentum(closes []float64, lookback int) float64 {
	if lookback < 1 || len(closes) < lookback+1 {
		return 0
	}
	ref := closes[len(closes)-1-lookback]
	if ref == 0 {
		return 0
	}
	return closes[len(closes)-1]/ref - 1
}

// SMA returns the simple moving average of the last period values.
// Zero when the series is too short.
func SMA(values []float64, period int) float64 {
	if period < 1 || len(values) < period {
		return 0
	}
	window := values[len(values)-period:]
	return lo.Sum(window) / float64(period)
}

// StdDev returns the sample standard deviation. Zero below two points.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := lo.Sum(values) / float64(len(values))
	var sumSquares float64
	for _, v := range values {
		d := v - mean
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}

// ZScore measures how far the latest close sits from the rolling mean of the
// last period closes, in standard deviations. Zero when flat or too short.
func ZScore(closes []float64, period int) float64 {
	if period < 2 || len(closes) < period {
		return 0
	}
	window := closes[len(closes)-period:]
	mean := lo.Sum(window) / float64(period)
	std := StdDev(window)
	if std == 0 {
		return 0
	}
	return (closes[len(closes)-1] - mean) / std
}

// PctChanges returns the bar-to-bar fractional returns of the series.
func PctChanges(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// AnnualizedVolatility is the sample deviation of daily returns scaled by √365.
func AnnualizedVolatility(closes []float64) float64 {
	return StdDev(PctChanges(closes)) * math.Sqrt(365)
}
