package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mkrv/momentum-bot/internal/backtest"
)

func newOptimizeCmd() *cobra.Command {
	var (
		csvPath     string
		capital     float64
		stopLossPct float64
		gridNums    []int
		volWindows  []int
		top         int
		resultsOut  string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Sweep grid strategy parameters over historical candles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			candles, err := backtest.LoadCSV(csvPath)
			if err != nil {
				return err
			}

			results, err := backtest.Optimize(candles, capital, stopLossPct,
				gridNums, volWindows, true)
			if err != nil {
				return err
			}

			if top > len(results) {
				top = len(results)
			}
			fmt.Printf("\ntop %d of %d parameter combinations\n\n", top, len(results))

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Grid", "Vol window", "Return", "Drawdown", "Sharpe", "Trades"})
			table.SetBorder(false)
			for _, r := range results[:top] {
				table.Append([]string{
					fmt.Sprintf("%d", r.GridNum),
					fmt.Sprintf("%d", r.VolWindow),
					fmt.Sprintf("%+.2f%%", r.TotalReturnPct),
					fmt.Sprintf("%.2f%%", r.MaxDrawdownPct),
					fmt.Sprintf("%.2f", r.SharpeRatio),
					fmt.Sprintf("%d", r.TradeCount),
				})
			}
			table.Render()

			if resultsOut != "" {
				if err := backtest.WriteResultsCSV(resultsOut, results); err != nil {
					return err
				}
				fmt.Printf("\nfull results written to %s\n", resultsOut)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "kline CSV file (required)")
	cmd.Flags().Float64Var(&capital, "capital", 10000, "initial capital in quote currency")
	cmd.Flags().Float64Var(&stopLossPct, "stop-loss", 5.0, "grid stop loss percent")
	cmd.Flags().IntSliceVar(&gridNums, "grid-nums", backtest.DefaultGridNums, "grid level counts to sweep")
	cmd.Flags().IntSliceVar(&volWindows, "vol-windows", backtest.DefaultVolWindows, "volatility windows to sweep")
	cmd.Flags().IntVar(&top, "top", 10, "how many combinations to print")
	cmd.Flags().StringVar(&resultsOut, "out", "optimization_results.csv", "CSV file for the full sweep, empty to skip")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}
