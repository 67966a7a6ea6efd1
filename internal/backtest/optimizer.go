package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/schollz/progressbar/v3"

	"github.com/mkrv/momentum-bot/internal/strategy"
)

// Default parameter grid for the optimizer sweep.
var (
	DefaultGridNums   = []int{10, 15, 20, 25, 30}
	DefaultVolWindows = []int{20, 30, 45, 60}
)

// OptimizeResult is one parameter combination with its backtest outcome.
type OptimizeResult struct {
	GridNum        int     `json:"grid_num"`
	VolWindow      int     `json:"vol_window"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	TradeCount     int     `json:"trade_count"`
	FinalEquity    float64 `json:"final_equity"`
}

// Optimize sweeps the grid strategy over every gridNum/volWindow combination
// and returns the results sorted by total return, best first.
func Optimize(candles []Candle, initialCapital, stopLossPct float64,
	gridNums, volWindows []int, showProgress bool) ([]OptimizeResult, error) {

	if len(gridNums) == 0 {
		gridNums = DefaultGridNums
	}
	if len(volWindows) == 0 {
		volWindows = DefaultVolWindows
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.Default(int64(len(gridNums)*len(volWindows)), "optimizing")
	}

	results := make([]OptimizeResult, 0, len(gridNums)*len(volWindows))
	for _, gridNum := range gridNums {
		for _, volWindow := range volWindows {
			strat := strategy.NewGrid(initialCapital, gridNum, volWindow, stopLossPct)
			run, err := Run(candles, strat, initialCapital, false)
			if err != nil {
				return nil, fmt.Errorf("grid=%d window=%d: %w", gridNum, volWindow, err)
			}
			results = append(results, OptimizeResult{
				GridNum:        gridNum,
				VolWindow:      volWindow,
				TotalReturnPct: run.Metrics.TotalReturnPct,
				MaxDrawdownPct: run.Metrics.MaxDrawdownPct,
				SharpeRatio:    run.Metrics.SharpeRatio,
				TradeCount:     run.Metrics.TradeCount,
				FinalEquity:    run.Metrics.FinalEquity,
			})
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].TotalReturnPct > results[j].TotalReturnPct
	})
	return results, nil
}

// WriteResultsCSV saves an optimizer sweep for later inspection.
func WriteResultsCSV(path string, results []OptimizeResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"grid_num", "vol_window", "total_return_pct", "max_drawdown_pct",
		"sharpe_ratio", "trade_count", "final_equity",
	}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			strconv.Itoa(r.GridNum),
			strconv.Itoa(r.VolWindow),
			strconv.FormatFloat(r.TotalReturnPct, 'f', 4, 64),
			strconv.FormatFloat(r.MaxDrawdownPct, 'f', 4, 64),
			strconv.FormatFloat(r.SharpeRatio, 'f', 4, 64),
			strconv.Itoa(r.TradeCount),
			strconv.FormatFloat(r.FinalEquity, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
