package history

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Postgres stores trades in a trades table, created on connect.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects with a lib/pq DSN or URL (postgres://...).
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			executed_at TIMESTAMPTZ NOT NULL,
			side TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			cost DOUBLE PRECISION,
			revenue DOUBLE PRECISION,
			profit_pct DOUBLE PRECISION,
			profit_quote DOUBLE PRECISION,
			reason TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create trades table: %w", err)
	}
	return nil
}

// Record inserts one trade row.
func (p *Postgres) Record(trade Trade) error {
	_, err := p.db.Exec(`
		INSERT INTO trades
			(executed_at, side, price, amount, cost, revenue, profit_pct, profit_quote, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		trade.Time, string(trade.Side), trade.Price, trade.Amount,
		trade.Cost, trade.Revenue, trade.ProfitPct, trade.ProfitQuote, trade.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

var _ Sink = (*Postgres)(nil)
