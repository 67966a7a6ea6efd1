package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkrv/momentum-bot/internal/bot"
	"github.com/mkrv/momentum-bot/internal/config"
	"github.com/mkrv/momentum-bot/internal/exchange/binance"
	"github.com/mkrv/momentum-bot/internal/history"
	"github.com/mkrv/momentum-bot/internal/logging"
	"github.com/mkrv/momentum-bot/internal/notify"
	"github.com/mkrv/momentum-bot/internal/safety"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the live trading loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

			base, quote, err := cfg.BaseQuote()
			if err != nil {
				return err
			}

			var notifier notify.Notifier = notify.Noop{}
			if cfg.WebhookEnabled() {
				notifier = notify.NewSlack(cfg.SlackWebhookURL, base, quote, log)
			} else {
				log.Warn().Msg("no slack webhook configured, notifications disabled")
			}

			jsonHistory, err := history.NewJSONFile(cfg.HistoryFile)
			if err != nil {
				return err
			}
			sinks := []history.Sink{jsonHistory}
			if cfg.DatabaseURL != "" {
				pg, err := history.NewPostgres(cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("connect trade database: %w", err)
				}
				sinks = append(sinks, pg)
			}
			trades := history.NewMulti(log, sinks...)
			defer trades.Close()

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ex := binance.New(cfg.APIKey, cfg.APISecret, log)

			// Fail fast on bad credentials or an unknown market before the
			// loop starts reporting itself healthy.
			if _, _, err := ex.FetchCheckData(ctx, cfg.PairSymbol(), cfg.Lookback+1, base, quote); err != nil {
				return fmt.Errorf("exchange connectivity check: %w", err)
			}

			monitor := safety.NewMonitor(safety.Config{
				VolatilityAlertThreshold: cfg.VolatilityAlertThreshold,
				VolatilityStopThreshold:  cfg.VolatilityStopThreshold,
				DailyLossLimit:           cfg.DailyLossLimit,
			}, notifier, log)

			b, err := bot.New(cfg, ex, notifier, monitor, trades, log)
			if err != nil {
				return err
			}
			return b.Run(ctx)
		},
	}
}
