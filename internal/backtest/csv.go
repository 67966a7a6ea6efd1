package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// candleColumns is the minimum column count of a Binance kline export:
// open time, open, high, low, close, volume.
const candleColumns = 6

// LoadCSV reads candles from a Binance kline CSV export, oldest first. A
// header row is tolerated; extra trailing columns are ignored.
func LoadCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var candles []Candle
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line, err)
		}
		if len(record) < candleColumns {
			return nil, fmt.Errorf("%s line %d: want at least %d columns, got %d",
				path, line, candleColumns, len(record))
		}

		openTime, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("%s line %d: parse open time %q: %w", path, line, record[0], err)
		}

		candle := Candle{Time: time.UnixMilli(openTime).UTC()}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &candle.Open},
			{"high", &candle.High},
			{"low", &candle.Low},
			{"close", &candle.Close},
			{"volume", &candle.Volume},
		}
		for i, field := range fields {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: parse %s %q: %w",
					path, line, field.name, record[i+1], err)
			}
			*field.dst = v
		}
		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%s: no candles found", path)
	}
	return candles, nil
}
