// Package history records executed trades. The canonical sink is the
// trades_history.json file operators already read; a Postgres sink can be
// enabled alongside it for long-term storage.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkrv/momentum-bot/internal/strategy"
)

// Trade is one executed order with its realized economics.
type Trade struct {
	Time        time.Time     `json:"timestamp"`
	Side        strategy.Side `json:"side"`
	Price       float64       `json:"price"`
	Amount      float64       `json:"amount"`
	Cost        float64       `json:"cost,omitempty"`
	Revenue     float64       `json:"revenue,omitempty"`
	ProfitPct   float64       `json:"profit_pct,omitempty"`
	ProfitQuote float64       `json:"profit_quote,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// Sink stores trades.
type Sink interface {
	Record(trade Trade) error
	Close() error
}

// JSONFile keeps the whole trade history as a single JSON array, rewritten on
// every trade. Existing entries are loaded on open so restarts append rather
// than truncate.
type JSONFile struct {
	mu     sync.Mutex
	path   string
	trades []Trade
}

// NewJSONFile opens (or initializes) a JSON trade history at path.
func NewJSONFile(path string) (*JSONFile, error) {
	f := &JSONFile{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read trade history %s: %w", path, err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.trades); err != nil {
			return nil, fmt.Errorf("parse trade history %s: %w", path, err)
		}
	}
	return f, nil
}

// Record appends the trade and rewrites the file.
func (f *JSONFile) Record(trade Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.trades = append(f.trades, trade)
	raw, err := json.MarshalIndent(f.trades, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trade history: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("write trade history %s: %w", f.path, err)
	}
	return nil
}

// Trades returns a copy of the recorded trades.
func (f *JSONFile) Trades() []Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Trade, len(f.trades))
	copy(out, f.trades)
	return out
}

func (f *JSONFile) Close() error { return nil }

// Multi fans a trade out to several sinks. Individual sink failures are
// logged and do not stop trading or the remaining sinks.
type Multi struct {
	sinks []Sink
	log   zerolog.Logger
}

// NewMulti wraps the given sinks.
func NewMulti(log zerolog.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, log: log.With().Str("component", "history").Logger()}
}

func (m *Multi) Record(trade Trade) error {
	for _, sink := range m.sinks {
		if err := sink.Record(trade); err != nil {
			m.log.Error().Err(err).Msg("trade history sink failed")
		}
	}
	return nil
}

func (m *Multi) Close() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ Sink = (*JSONFile)(nil)
	_ Sink = (*Multi)(nil)
)
