// Package bot runs the live momentum trading loop: fetch daily closes, run
// the safety checks, honor the stop-loss, then act on the momentum signal.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkrv/momentum-bot/internal/config"
	"github.com/mkrv/momentum-bot/internal/exchange"
	"github.com/mkrv/momentum-bot/internal/history"
	"github.com/mkrv/momentum-bot/internal/notify"
	"github.com/mkrv/momentum-bot/internal/safety"
	"github.com/mkrv/momentum-bot/internal/strategy"
)

// minQuoteBalance is the smallest quote balance worth placing a buy for.
const minQuoteBalance = 10

// extraCloses is fetched on top of the lookback so the momentum window is
// always fully populated even when the exchange trims the series.
const extraCloses = 10

// state is what survives a restart: without it a supervised restart would
// orphan an open position and never apply the stop-loss to it.
type state struct {
	InPosition   bool    `json:"in_position"`
	EntryPrice   float64 `json:"entry_price"`
	PositionSize float64 `json:"position_size"`
}

// Bot is the live trading loop.
type Bot struct {
	cfg      *config.Config
	ex       exchange.Exchange
	notifier notify.Notifier
	monitor  *safety.Monitor
	trades   history.Sink
	log      zerolog.Logger

	pair  string
	base  string
	quote string

	state      state
	heartbeats int
}

// New wires a bot from its collaborators. The config must be validated.
func New(cfg *config.Config, ex exchange.Exchange, notifier notify.Notifier,
	monitor *safety.Monitor, trades history.Sink, log zerolog.Logger) (*Bot, error) {

	base, quote, err := cfg.BaseQuote()
	if err != nil {
		return nil, err
	}

	b := &Bot{
		cfg:      cfg,
		ex:       ex,
		notifier: notifier,
		monitor:  monitor,
		trades:   trades,
		log:      log.With().Str("component", "bot").Logger(),
		pair:     cfg.PairSymbol(),
		base:     base,
		quote:    quote,
	}
	if err := b.loadState(); err != nil {
		return nil, err
	}
	return b, nil
}

// Run executes checks until the context is canceled. The first check happens
// immediately, the rest on the configured interval.
func (b *Bot) Run(ctx context.Context) error {
	interval, err := b.cfg.Interval()
	if err != nil {
		return err
	}

	b.log.Info().
		Str("symbol", b.cfg.Symbol).
		Int("lookback", b.cfg.Lookback).
		Float64("threshold", b.cfg.Threshold).
		Float64("stop_loss_pct", b.cfg.StopLossPct).
		Dur("check_interval", interval).
		Bool("resumed_position", b.state.InPosition).
		Msg("momentum bot starting")
	b.notifier.Startup(b.cfg.Symbol)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		b.check(ctx)

		select {
		case <-ctx.Done():
			b.log.Info().Msg("momentum bot stopping")
			b.notifier.Shutdown()
			return nil
		case <-ticker.C:
		}
	}
}

// check performs one full trading iteration. Errors never abort the loop;
// they are logged, counted by the safety monitor, and retried next tick.
func (b *Bot) check(ctx context.Context) {
	closes, err := b.ex.DailyCloses(ctx, b.pair, b.cfg.Lookback+extraCloses)
	if err != nil || len(closes) == 0 {
		b.log.Error().Err(err).Msg("price history fetch failed")
		b.monitor.RecordAPIError()
		return
	}
	price := closes[len(closes)-1]

	// Sharp-move check first: a hard stop liquidates before anything else.
	if _, stop := b.monitor.CheckVolatility(price); stop {
		b.log.Error().Msg("volatility stop, halting trading")
		if b.state.InPosition {
			b.executeSell(ctx, price, true, "volatility_stop")
		}
		return
	}

	balances, err := b.ex.FreeBalances(ctx, b.base, b.quote)
	if err != nil {
		b.log.Error().Err(err).Msg("balance fetch failed")
		b.monitor.RecordAPIError()
		return
	}
	b.monitor.ResetAPIErrors()

	equity := balances[b.quote] + balances[b.base]*price
	if b.monitor.CheckDailyLoss(equity) {
		b.log.Warn().Msg("daily loss limit active, skipping check")
		return
	}
	b.monitor.CheckBalanceAnomaly(equity)
	if b.monitor.TradingHalted() {
		b.log.Error().Msg("trading halted by safety monitor")
		return
	}

	// Stop-loss beats the signal: a losing position is closed regardless of
	// what momentum says.
	if b.stopLossHit(price) {
		b.log.Warn().Float64("price", price).Float64("entry", b.state.EntryPrice).
			Msg("stop loss triggered")
		b.executeSell(ctx, price, true, "stop_loss")
		return
	}

	momentum := strategy.Momentum(closes, b.cfg.Lookback)
	b.logStatus(price, momentum, balances)

	switch {
	case momentum > b.cfg.Threshold && !b.state.InPosition:
		b.log.Info().Float64("momentum", momentum).Msg("buy signal")
		b.executeBuy(ctx, price, balances[b.quote],
			fmt.Sprintf("momentum_up_%+.2f%%", momentum*100))

	case momentum < -b.cfg.Threshold && b.state.InPosition:
		b.log.Info().Float64("momentum", momentum).Msg("sell signal")
		b.executeSell(ctx, price, false,
			fmt.Sprintf("momentum_down_%+.2f%%", momentum*100))

	default:
		b.log.Info().Msg("no signal")
	}
}

// stopLossHit reports whether the open position lost more than stop_loss_pct.
func (b *Bot) stopLossHit(price float64) bool {
	if !b.state.InPosition || b.state.EntryPrice == 0 {
		return false
	}
	lossPct := (price - b.state.EntryPrice) / b.state.EntryPrice * 100
	return lossPct < -b.cfg.StopLossPct
}

func (b *Bot) executeBuy(ctx context.Context, price, quoteBalance float64, reason string) {
	if quoteBalance < minQuoteBalance {
		b.log.Warn().Float64("balance", quoteBalance).Msg("quote balance too small to buy")
		return
	}

	lot, err := b.ex.LotSize(ctx, b.pair)
	if err != nil {
		b.log.Error().Err(err).Msg("lot size fetch failed")
		b.monitor.RecordAPIError()
		return
	}

	// Spend 95% of the balance, leaving headroom for fees.
	amount := exchange.FloorToStep(quoteBalance*0.95/price, lot.StepQty)
	if amount < lot.MinQty || amount <= 0 {
		b.log.Warn().Float64("amount", amount).Float64("min", lot.MinQty).
			Msg("order size below exchange minimum")
		return
	}

	if err := b.ex.MarketBuy(ctx, b.pair, amount); err != nil {
		b.log.Error().Err(err).Msg("buy order failed")
		b.notifier.Error(fmt.Sprintf("Buy order failed: %v", err))
		b.monitor.RecordAPIError()
		return
	}
	b.monitor.ResetAPIErrors()

	b.state = state{InPosition: true, EntryPrice: price, PositionSize: amount}
	if err := b.saveState(); err != nil {
		b.log.Error().Err(err).Msg("state save failed")
	}

	b.recordTrade(history.Trade{
		Time:   time.Now().UTC(),
		Side:   strategy.Buy,
		Price:  price,
		Amount: amount,
		Cost:   amount * price,
		Reason: reason,
	})
	b.notifier.Buy(amount, price)
	b.log.Info().Float64("amount", amount).Float64("price", price).Msg("buy order filled")
}

func (b *Bot) executeSell(ctx context.Context, price float64, isStopLoss bool, reason string) {
	balances, err := b.ex.FreeBalances(ctx, b.base)
	if err != nil {
		b.log.Error().Err(err).Msg("balance fetch failed")
		b.monitor.RecordAPIError()
		return
	}

	lot, err := b.ex.LotSize(ctx, b.pair)
	if err != nil {
		b.log.Error().Err(err).Msg("lot size fetch failed")
		b.monitor.RecordAPIError()
		return
	}

	amount := exchange.FloorToStep(balances[b.base], lot.StepQty)
	if amount < lot.MinQty || amount <= 0 {
		b.log.Warn().Float64("balance", balances[b.base]).Msg("nothing to sell")
		return
	}

	if err := b.ex.MarketSell(ctx, b.pair, amount); err != nil {
		b.log.Error().Err(err).Msg("sell order failed")
		b.notifier.Error(fmt.Sprintf("Sell order failed: %v", err))
		b.monitor.RecordAPIError()
		return
	}
	b.monitor.ResetAPIErrors()

	var profitPct, profitQuote float64
	if b.state.EntryPrice > 0 {
		profitPct = (price - b.state.EntryPrice) / b.state.EntryPrice * 100
		profitQuote = (price - b.state.EntryPrice) * amount
	}

	b.state = state{}
	if err := b.saveState(); err != nil {
		b.log.Error().Err(err).Msg("state save failed")
	}

	b.recordTrade(history.Trade{
		Time:        time.Now().UTC(),
		Side:        strategy.Sell,
		Price:       price,
		Amount:      amount,
		Revenue:     amount * price,
		ProfitPct:   profitPct,
		ProfitQuote: profitQuote,
		Reason:      reason,
	})

	if isStopLoss {
		b.notifier.StopLoss(amount, price, profitPct)
	} else {
		b.notifier.Sell(amount, price, profitPct)
	}
	b.log.Info().Float64("amount", amount).Float64("price", price).
		Float64("profit_pct", profitPct).Msg("sell order filled")
}

func (b *Bot) recordTrade(trade history.Trade) {
	if err := b.trades.Record(trade); err != nil {
		b.log.Error().Err(err).Msg("trade history write failed")
	}
}

func (b *Bot) logStatus(price, momentum float64, balances map[string]float64) {
	evt := b.log.Info().
		Float64("price", price).
		Float64("momentum_pct", momentum*100).
		Float64(b.quote+"_balance", balances[b.quote]).
		Float64(b.base+"_balance", balances[b.base]).
		Bool("in_position", b.state.InPosition)
	if b.state.InPosition && b.state.EntryPrice > 0 {
		evt = evt.
			Float64("entry_price", b.state.EntryPrice).
			Float64("unrealized_pnl_pct", (price-b.state.EntryPrice)/b.state.EntryPrice*100)
	}
	evt.Msg("status")

	b.heartbeats++
	if b.heartbeats >= b.cfg.HeartbeatEvery {
		b.notifier.Heartbeat(price, momentum, balances[b.quote], balances[b.base])
		b.heartbeats = 0
	}
}

func (b *Bot) loadState() error {
	raw, err := os.ReadFile(b.cfg.StateFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state %s: %w", b.cfg.StateFile, err)
	}
	if err := json.Unmarshal(raw, &b.state); err != nil {
		return fmt.Errorf("parse state %s: %w", b.cfg.StateFile, err)
	}
	return nil
}

func (b *Bot) saveState() error {
	raw, err := json.MarshalIndent(b.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.cfg.StateFile, raw, 0o644)
}
