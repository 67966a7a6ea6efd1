package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkrv/momentum-bot/internal/exchange"
)

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		name     string
		qty      float64
		step     float64
		expected string
	}{
		{"floors to step", 0.0156789, 0.0001, "0.0156"},
		{"exact multiple", 0.5, 0.001, "0.500"},
		{"coarse step", 13.7, 1, "13"},
		{"no step falls back to 8 decimals", 0.15, 0, "0.15000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatQuantity(tt.qty, tt.step))
		})
	}
}

func TestFloorToStep(t *testing.T) {
	assert.InDelta(t, 0.0156, exchange.FloorToStep(0.01569, 0.0001), 1e-9)
	assert.InDelta(t, 42.0, exchange.FloorToStep(42.9, 1), 1e-9)
	assert.InDelta(t, 0.3, exchange.FloorToStep(0.3, 0), 1e-9)
}

func TestStepPrecision(t *testing.T) {
	assert.Equal(t, 0, stepPrecision(1))
	assert.Equal(t, 3, stepPrecision(0.001))
	assert.Equal(t, 8, stepPrecision(0))
}
