package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mkrv/momentum-bot/internal/backtest"
	"github.com/mkrv/momentum-bot/internal/strategy"
)

func newBacktestCmd() *cobra.Command {
	var (
		csvPath     string
		stratName   string
		capital     float64
		lookback    int
		threshold   float64
		maPeriod    int
		zThreshold  float64
		gridNum     int
		volWindow   int
		stopLossPct float64
		summaryOut  string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a strategy over historical candles from a kline CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			candles, err := backtest.LoadCSV(csvPath)
			if err != nil {
				return err
			}

			var strat strategy.Strategy
			switch stratName {
			case "momentum":
				strat = strategy.NewMomentum(capital, lookback, threshold)
			case "mean-reversion":
				strat = strategy.NewMeanReversion(capital, maPeriod, zThreshold)
			case "grid":
				strat = strategy.NewGrid(capital, gridNum, volWindow, stopLossPct)
			default:
				return fmt.Errorf("unknown strategy %q (momentum, mean-reversion, grid)", stratName)
			}

			result, err := backtest.Run(candles, strat, capital, true)
			if err != nil {
				return err
			}

			fmt.Printf("\n%s over %d candles\n\n", result.Strategy, len(candles))
			printMetrics(result.Metrics)
			printReturnsHistogram(result.Curve)

			if summaryOut != "" {
				if err := writeSummary(summaryOut, result); err != nil {
					return err
				}
				fmt.Printf("\nsummary written to %s\n", summaryOut)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "kline CSV file (required)")
	cmd.Flags().StringVar(&stratName, "strategy", "momentum", "strategy: momentum, mean-reversion or grid")
	cmd.Flags().Float64Var(&capital, "capital", 10000, "initial capital in quote currency")
	cmd.Flags().IntVar(&lookback, "lookback", 20, "momentum lookback in candles")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.02, "momentum entry/exit threshold")
	cmd.Flags().IntVar(&maPeriod, "ma-period", 20, "mean-reversion moving-average period")
	cmd.Flags().Float64Var(&zThreshold, "z-threshold", 2.0, "mean-reversion entry z-score")
	cmd.Flags().IntVar(&gridNum, "grid-num", 10, "number of grid levels")
	cmd.Flags().IntVar(&volWindow, "vol-window", 30, "grid volatility window in candles")
	cmd.Flags().Float64Var(&stopLossPct, "stop-loss", 5.0, "grid stop loss percent")
	cmd.Flags().StringVar(&summaryOut, "out", "", "write a JSON summary to this path")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func printMetrics(m backtest.Metrics) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorder(false)
	table.AppendBulk([][]string{
		{"Initial capital", fmt.Sprintf("%.2f", m.InitialCapital)},
		{"Final equity", fmt.Sprintf("%.2f", m.FinalEquity)},
		{"Net profit", fmt.Sprintf("%+.2f", m.NetProfit)},
		{"Total return", fmt.Sprintf("%+.2f%%", m.TotalReturnPct)},
		{"CAGR", fmt.Sprintf("%+.2f%%", m.CAGRPct)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdownPct)},
		{"Sharpe ratio", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"Win rate", fmt.Sprintf("%.1f%%", m.WinRatePct)},
		{"Trades", fmt.Sprintf("%d", m.TradeCount)},
		{"Period", fmt.Sprintf("%.0f days", m.PeriodDays)},
	})
	table.Render()
}

func printReturnsHistogram(curve []backtest.EquityPoint) {
	returns := backtest.DailyReturns(curve)
	if len(returns) < 2 {
		return
	}
	fmt.Println("\nDaily returns distribution:")
	hist := histogram.Hist(9, returns)
	if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(40)); err != nil {
		fmt.Fprintln(os.Stderr, "histogram:", err)
	}
}

func writeSummary(path string, result *backtest.Result) error {
	out := struct {
		Strategy string           `json:"strategy"`
		Metrics  backtest.Metrics `json:"metrics"`
		Trades   any              `json:"trades"`
	}{result.Strategy, result.Metrics, result.Trades}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
