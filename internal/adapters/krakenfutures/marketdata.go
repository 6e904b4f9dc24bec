package krakenfutures

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// chartInterval is the only bar resolution the bot trades on.
const chartInterval = "15m"

type chartCandle struct {
	Time   int64       `json:"time"` // bar open, milliseconds
	Open   json.Number `json:"open"`
	High   json.Number `json:"high"`
	Low    json.Number `json:"low"`
	Close  json.Number `json:"close"`
	Volume json.Number `json:"volume"`
}

type chartResponse struct {
	Candles []chartCandle `json:"candles"`
	Error   string        `json:"error,omitempty"`
}

// FetchClosedBars returns up to count closed 15m bars for symbol, oldest
// first. The exchange includes the in-progress candle as the last element
// of the charts payload; it is dropped here so callers only ever see
// completed bars.
func (c *Client) FetchClosedBars(ctx context.Context, symbol string, count int) ([]domain.Candle, error) {
	if count <= 0 {
		count = 100
	}
	// Request one extra bar to cover the dropped in-progress candle.
	from := time.Now().Add(-time.Duration(count+1) * 15 * time.Minute).Unix()
	rawURL := fmt.Sprintf("%s/api/charts/v1/trade/%s/%s?from=%d", c.chartURL, symbol, chartInterval, from)

	data, err := c.doPublic(ctx, rawURL)
	if err != nil {
		return nil, c.handleError(ctx, err, "FetchClosedBars")
	}

	var payload chartResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding charts response: %w", ports.ErrNetwork, err)
	}
	if payload.Error != "" {
		return nil, c.apiError(ctx, "FetchClosedBars", payload.Error)
	}
	if len(payload.Candles) == 0 {
		return nil, fmt.Errorf("charts returned no candles for %s: %w", symbol, ports.ErrNoClosedBar)
	}

	candles := make([]domain.Candle, 0, len(payload.Candles))
	for _, raw := range payload.Candles {
		candle, err := translateChartCandle(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
		}
		candles = append(candles, candle)
	}
	domain.SortCandles(candles)

	// The last element is the candle still forming.
	candles = candles[:len(candles)-1]
	if len(candles) == 0 {
		return nil, fmt.Errorf("only the in-progress candle is available for %s: %w", symbol, ports.ErrNoClosedBar)
	}
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}

	c.logger.Debug(ctx, "Fetched closed bars", map[string]interface{}{
		"symbol": symbol,
		"bars":   len(candles),
		"last":   candles[len(candles)-1].OpenTime,
	})
	return candles, nil
}

func translateChartCandle(raw chartCandle) (domain.Candle, error) {
	open, err := raw.Open.Float64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing open %q: %w", raw.Open, err)
	}
	high, err := raw.High.Float64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing high %q: %w", raw.High, err)
	}
	low, err := raw.Low.Float64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing low %q: %w", raw.Low, err)
	}
	closePrice, err := raw.Close.Float64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing close %q: %w", raw.Close, err)
	}
	volume := 0.0
	if raw.Volume != "" {
		if volume, err = raw.Volume.Float64(); err != nil {
			return domain.Candle{}, fmt.Errorf("parsing volume %q: %w", raw.Volume, err)
		}
	}
	return domain.Candle{
		OpenTime: time.UnixMilli(raw.Time).UTC(),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
	}, nil
}

// parseNumber converts Kraken's mixed string/number fields.
func parseNumber(n json.Number) (float64, error) {
	if n == "" {
		return 0, nil
	}
	return strconv.ParseFloat(n.String(), 64)
}
