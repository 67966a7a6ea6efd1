package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkrv/momentum-bot/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "momentum",
		Short:         "Momentum trading bot for Binance spot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath,
		"path to the JSON configuration file")

	root.AddCommand(
		newRunCmd(),
		newBacktestCmd(),
		newOptimizeCmd(),
		newProvisionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
