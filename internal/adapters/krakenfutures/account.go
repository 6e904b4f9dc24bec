package krakenfutures

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

type openPositionsResponse struct {
	Result        string `json:"result"`
	Error         string `json:"error,omitempty"`
	OpenPositions []struct {
		Side              string      `json:"side"`
		Symbol            string      `json:"symbol"`
		Price             json.Number `json:"price"`
		Size              json.Number `json:"size"`
		UnrealizedFunding json.Number `json:"unrealizedFunding"`
	} `json:"openPositions"`
}

// GetOpenPositions returns the exchange-reported positions for symbol.
// Used by the cycle to cross-check local state against exchange truth.
func (c *Client) GetOpenPositions(ctx context.Context, symbol string) ([]ports.ExchangePosition, error) {
	data, err := c.doPrivate(ctx, http.MethodGet, "/api/v3/openpositions", nil)
	if err != nil {
		return nil, c.handleError(ctx, err, "GetOpenPositions")
	}

	var payload openPositionsResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding openpositions response: %w", ports.ErrNetwork, err)
	}
	if payload.Result != "success" {
		return nil, c.apiError(ctx, "GetOpenPositions", payload.Error)
	}

	var positions []ports.ExchangePosition
	for _, raw := range payload.OpenPositions {
		if !strings.EqualFold(raw.Symbol, symbol) {
			continue
		}
		price, err := parseNumber(raw.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing position price %q: %w", ports.ErrInvalidRequest, raw.Price, err)
		}
		size, err := parseNumber(raw.Size)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing position size %q: %w", ports.ErrInvalidRequest, raw.Size, err)
		}
		pnl, _ := parseNumber(raw.UnrealizedFunding)

		side := domain.Buy
		if strings.EqualFold(raw.Side, "short") {
			side = domain.Sell
		}
		positions = append(positions, ports.ExchangePosition{
			Symbol:        raw.Symbol,
			Side:          side,
			Size:          size,
			Price:         price,
			UnrealizedPnL: pnl,
		})
	}

	c.logger.Debug(ctx, "Fetched open positions", map[string]interface{}{
		"symbol":    symbol,
		"positions": len(positions),
	})
	return positions, nil
}

type accountsResponse struct {
	Result   string `json:"result"`
	Error    string `json:"error,omitempty"`
	Accounts map[string]struct {
		AvailableMargin json.Number `json:"availableMargin"`
		Currency        string      `json:"currency"`
	} `json:"accounts"`
}

// GetAvailableMargin returns the margin available for new positions from
// the flex (multi-collateral) account.
func (c *Client) GetAvailableMargin(ctx context.Context) (float64, error) {
	data, err := c.doPrivate(ctx, http.MethodGet, "/api/v3/accounts", nil)
	if err != nil {
		return 0, c.handleError(ctx, err, "GetAvailableMargin")
	}

	var payload accountsResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("%w: decoding accounts response: %w", ports.ErrNetwork, err)
	}
	if payload.Result != "success" {
		return 0, c.apiError(ctx, "GetAvailableMargin", payload.Error)
	}

	account, ok := payload.Accounts["flex"]
	if !ok {
		return 0, fmt.Errorf("%w: accounts response has no flex account", ports.ErrInvalidRequest)
	}
	margin, err := parseNumber(account.AvailableMargin)
	if err != nil {
		return 0, fmt.Errorf("%w: parsing available margin %q: %w", ports.ErrInvalidRequest, account.AvailableMargin, err)
	}

	c.logger.Debug(ctx, "Fetched available margin", map[string]interface{}{"availableMargin": margin})
	return margin, nil
}
