package krakenfutures

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

type sendOrderResponse struct {
	Result     string `json:"result"`
	Error      string `json:"error,omitempty"`
	SendStatus struct {
		OrderID      string `json:"order_id"`
		CliOrdID     string `json:"cliOrdId"`
		Status       string `json:"status"`
		ReceivedTime string `json:"receivedTime"`
		OrderEvents  []struct {
			Type   string      `json:"type"`
			Price  json.Number `json:"price"`
			Amount json.Number `json:"amount"`
		} `json:"orderEvents"`
	} `json:"sendStatus"`
}

// rejectedStatuses are sendStatus values that mean the order did not execute.
var rejectedStatuses = map[string]bool{
	"insufficientAvailableFunds": true,
	"wouldNotReducePosition":     true,
	"marketSuspended":            true,
	"marketInactive":             true,
	"invalidSize":                true,
	"invalidPrice":               true,
	"tooManySmallOrders":         true,
	"clientOrderIdAlreadyExist":  true,
}

// SubmitOrder submits a market order. A client order ID is generated when
// the request carries none, so a timed-out submission can be recognized on
// the exchange instead of sent twice.
func (c *Client) SubmitOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResponse, error) {
	if req.Symbol == "" || req.Size <= 0 {
		return nil, fmt.Errorf("%w: symbol and positive size are required", ports.ErrInvalidRequest)
	}
	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}
	orderType := req.Type
	if orderType == "" {
		orderType = ports.OrderTypeMarket
	}

	params := url.Values{}
	params.Set("orderType", string(orderType))
	params.Set("symbol", req.Symbol)
	params.Set("side", sideParam(req.Side))
	params.Set("size", strconv.FormatFloat(req.Size, 'f', -1, 64))
	params.Set("cliOrdId", clientOrderID)
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	c.logger.Info(ctx, "Submitting order", map[string]interface{}{
		"symbol":   req.Symbol,
		"side":     req.Side,
		"size":     req.Size,
		"cliOrdId": clientOrderID,
	})

	data, err := c.doPrivate(ctx, http.MethodPost, "/api/v3/sendorder", params)
	if err != nil {
		return nil, c.handleError(ctx, err, "SubmitOrder")
	}

	var payload sendOrderResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding sendorder response: %w", ports.ErrNetwork, err)
	}
	if payload.Result != "success" {
		return nil, c.apiError(ctx, "SubmitOrder", payload.Error)
	}
	if rejectedStatuses[payload.SendStatus.Status] {
		if payload.SendStatus.Status == "insufficientAvailableFunds" {
			return nil, fmt.Errorf("%w: order %s rejected", ports.ErrInsufficientFunds, clientOrderID)
		}
		return nil, fmt.Errorf("%w: order %s rejected with status %q", ports.ErrExecutionFailure, clientOrderID, payload.SendStatus.Status)
	}

	return translateSendStatus(&payload, clientOrderID)
}

func translateSendStatus(payload *sendOrderResponse, clientOrderID string) (*ports.OrderResponse, error) {
	resp := &ports.OrderResponse{
		OrderID:       payload.SendStatus.OrderID,
		ClientOrderID: clientOrderID,
		Status:        payload.SendStatus.Status,
	}
	if ts := payload.SendStatus.ReceivedTime; ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			resp.Timestamp = parsed
		}
	}
	for _, event := range payload.SendStatus.OrderEvents {
		if event.Type != "EXECUTION" && event.Type != "execution" {
			continue
		}
		price, err := parseNumber(event.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing fill price %q: %w", ports.ErrInvalidRequest, event.Price, err)
		}
		amount, err := parseNumber(event.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing fill amount %q: %w", ports.ErrInvalidRequest, event.Amount, err)
		}
		resp.FilledSize += amount
		resp.Price = price
	}
	return resp, nil
}

func sideParam(side domain.OrderSide) string {
	return strings.ToLower(string(side))
}
