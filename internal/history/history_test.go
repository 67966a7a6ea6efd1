package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrv/momentum-bot/internal/strategy"
)

func sampleTrade(side strategy.Side) Trade {
	return Trade{
		Time:   time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
		Side:   side,
		Price:  64000,
		Amount: 0.015,
		Cost:   960,
		Reason: "momentum_up_+3.10%",
	}
}

func TestJSONFileRecordAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades_history.json")

	f, err := NewJSONFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Record(sampleTrade(strategy.Buy)))
	require.NoError(t, f.Record(sampleTrade(strategy.Sell)))

	// File holds a valid JSON array of both trades.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []Trade
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Len(t, onDisk, 2)

	// Reopening keeps history: a restart must append, not truncate.
	reopened, err := NewJSONFile(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Record(sampleTrade(strategy.Buy)))
	assert.Len(t, reopened.Trades(), 3)
}

func TestJSONFileCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONFile(path)
	assert.Error(t, err)
}

type failingSink struct{ closed bool }

func (f *failingSink) Record(Trade) error { return errors.New("sink down") }
func (f *failingSink) Close() error       { f.closed = true; return nil }

func TestMultiKeepsGoingOnSinkFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades_history.json")
	file, err := NewJSONFile(path)
	require.NoError(t, err)

	bad := &failingSink{}
	multi := NewMulti(zerolog.Nop(), bad, file)

	// The failing sink must not prevent the file sink from recording.
	require.NoError(t, multi.Record(sampleTrade(strategy.Buy)))
	assert.Len(t, file.Trades(), 1)

	require.NoError(t, multi.Close())
	assert.True(t, bad.closed)
}
