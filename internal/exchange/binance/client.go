// Package binance implements the exchange surface on Binance spot.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mkrv/momentum-bot/internal/exchange"
)

const (
	dailyInterval = "1d"
	// requestsPerSec keeps us far under Binance's request weight limits.
	requestsPerSec = 5
	maxRetries     = 3
	maxRetryWait   = 30 * time.Second
)

// Client is a rate-limited, retrying Binance spot client.
type Client struct {
	api     *binance.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	mu       sync.Mutex
	lotSizes map[string]exchange.LotSize
}

// New builds a client with the given API credentials.
func New(apiKey, apiSecret string, log zerolog.Logger) *Client {
	return &Client{
		api:      binance.NewClient(apiKey, apiSecret),
		limiter:  rate.NewLimiter(rate.Every(time.Second/requestsPerSec), requestsPerSec),
		log:      log.With().Str("component", "binance").Logger(),
		lotSizes: make(map[string]exchange.LotSize),
	}
}

// do wraps an API call with rate limiting and exponential-backoff retries.
func (c *Client) do(ctx context.Context, op func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxRetryWait
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}

// DailyCloses returns up to limit daily closing prices, oldest first.
func (c *Client) DailyCloses(ctx context.Context, symbol string, limit int) ([]float64, error) {
	var klines []*binance.Kline
	err := c.do(ctx, func() error {
		var err error
		klines, err = c.api.NewKlinesService().
			Symbol(symbol).
			Interval(dailyInterval).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s daily klines: %w", symbol, err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", k.Close, err)
		}
		closes = append(closes, closePrice)
	}
	return closes, nil
}

// LastPrice returns the latest traded price for the symbol.
func (c *Client) LastPrice(ctx context.Context, symbol string) (float64, error) {
	var prices []*binance.SymbolPrice
	err := c.do(ctx, func() error {
		var err error
		prices, err = c.api.NewListPricesService().Symbol(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fetch %s price: %w", symbol, err)
	}

	for _, p := range prices {
		if p.Symbol == symbol {
			return strconv.ParseFloat(p.Price, 64)
		}
	}
	return 0, fmt.Errorf("symbol %s not in price list", symbol)
}

// FreeBalances returns free balances for the requested assets, fetching the
// account and exchange info concurrently where needed.
func (c *Client) FreeBalances(ctx context.Context, assets ...string) (map[string]float64, error) {
	var account *binance.Account
	err := c.do(ctx, func() error {
		var err error
		account, err = c.api.NewGetAccountService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	out := make(map[string]float64, len(assets))
	for _, asset := range assets {
		out[asset] = 0
	}
	for _, balance := range account.Balances {
		if _, wanted := out[balance.Asset]; !wanted {
			continue
		}
		free, err := strconv.ParseFloat(balance.Free, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s balance %q: %w", balance.Asset, balance.Free, err)
		}
		out[balance.Asset] = free
	}
	return out, nil
}

// LotSize returns the pair's lot-size filter, cached after the first call.
func (c *Client) LotSize(ctx context.Context, symbol string) (exchange.LotSize, error) {
	c.mu.Lock()
	if lot, ok := c.lotSizes[symbol]; ok {
		c.mu.Unlock()
		return lot, nil
	}
	c.mu.Unlock()

	var info *binance.ExchangeInfo
	err := c.do(ctx, func() error {
		var err error
		info, err = c.api.NewExchangeInfoService().Symbols(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return exchange.LotSize{}, fmt.Errorf("fetch exchange info for %s: %w", symbol, err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		filter := s.LotSizeFilter()
		if filter == nil {
			break
		}
		minQty, err := strconv.ParseFloat(filter.MinQuantity, 64)
		if err != nil {
			return exchange.LotSize{}, fmt.Errorf("parse min quantity: %w", err)
		}
		step, err := strconv.ParseFloat(filter.StepSize, 64)
		if err != nil {
			return exchange.LotSize{}, fmt.Errorf("parse step size: %w", err)
		}

		lot := exchange.LotSize{MinQty: minQty, StepQty: step}
		c.mu.Lock()
		c.lotSizes[symbol] = lot
		c.mu.Unlock()
		return lot, nil
	}
	return exchange.LotSize{}, fmt.Errorf("no lot size filter for %s", symbol)
}

// MarketBuy places a market buy for qty of the base asset.
func (c *Client) MarketBuy(ctx context.Context, symbol string, qty float64) error {
	return c.marketOrder(ctx, symbol, binance.SideTypeBuy, qty)
}

// MarketSell places a market sell for qty of the base asset.
func (c *Client) MarketSell(ctx context.Context, symbol string, qty float64) error {
	return c.marketOrder(ctx, symbol, binance.SideTypeSell, qty)
}

func (c *Client) marketOrder(ctx context.Context, symbol string, side binance.SideType, qty float64) error {
	lot, err := c.LotSize(ctx, symbol)
	if err != nil {
		return err
	}
	quantity := FormatQuantity(qty, lot.StepQty)

	var order *binance.CreateOrderResponse
	err = c.do(ctx, func() error {
		var err error
		order, err = c.api.NewCreateOrderService().
			Symbol(symbol).
			Side(side).
			Type(binance.OrderTypeMarket).
			Quantity(quantity).
			Do(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("market %s %s %s: %w", side, quantity, symbol, err)
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("quantity", quantity).
		Int64("order_id", order.OrderID).
		Msg("market order placed")
	return nil
}

// FetchCheckData fetches daily closes and balances in parallel.
func (c *Client) FetchCheckData(ctx context.Context, symbol string, limit int, assets ...string) ([]float64, map[string]float64, error) {
	var (
		closes   []float64
		balances map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		closes, err = c.DailyCloses(gctx, symbol, limit)
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = c.FreeBalances(gctx, assets...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return closes, balances, nil
}

// FormatQuantity floors qty to the pair's step size and renders it without
// scientific notation, the way the order endpoint expects.
func FormatQuantity(qty, step float64) string {
	qty = exchange.FloorToStep(qty, step)
	precision := stepPrecision(step)
	return strconv.FormatFloat(qty, 'f', precision, 64)
}

// stepPrecision counts the decimals of a step like 0.0001.
func stepPrecision(step float64) int {
	if step <= 0 {
		return 8
	}
	precision := 0
	for step < 1 && precision < 8 {
		step *= 10
		precision++
	}
	return precision
}

var _ exchange.Exchange = (*Client)(nil)
