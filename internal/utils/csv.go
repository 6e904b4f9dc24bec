// Package utils holds small shared helpers for the offline tooling.
package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

var candleHeader = []string{"open_time", "open", "high", "low", "close", "volume", "trade_count"}

// WriteCandlesToCSV writes bars to a CSV file, one row per closed bar.
func WriteCandlesToCSV(candles []domain.Candle, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(candleHeader); err != nil {
		return err
	}
	for _, c := range candles {
		err := w.Write([]string{
			c.OpenTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
			strconv.Itoa(c.TradeCount),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCandlesFromCSV loads bars written by WriteCandlesToCSV, sorted by
// open time ascending.
func ReadCandlesFromCSV(filename string) ([]domain.Candle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(candleHeader)

	// Header row.
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", filename, err)
	}

	var candles []domain.Candle
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filename, err)
		}
		c, err := parseCandleRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, line, err)
		}
		candles = append(candles, c)
	}
	domain.SortCandles(candles)
	return candles, nil
}

func parseCandleRecord(record []string) (domain.Candle, error) {
	openTime, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing open_time: %w", err)
	}
	fields := make([]float64, 5)
	for i, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("parsing %s: %w", name, err)
		}
		fields[i] = v
	}
	trades, err := strconv.Atoi(record[6])
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing trade_count: %w", err)
	}
	return domain.Candle{
		OpenTime:   openTime,
		Open:       fields[0],
		High:       fields[1],
		Low:        fields[2],
		Close:      fields[3],
		Volume:     fields[4],
		TradeCount: trades,
	}, nil
}
