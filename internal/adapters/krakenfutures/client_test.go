package krakenfutures

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// testSecret is a valid base64 string usable as an API secret.
var testSecret = base64.StdEncoding.EncodeToString([]byte("test-secret-bytes"))

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		APIKey:    "test-key",
		APISecret: testSecret,
		BaseURL:   server.URL,
		ChartURL:  server.URL,
		Logger:    ports.NopLogger{},
	})
	require.NoError(t, err)
	client.nonce = func() string { return "1600000000000" }
	return client, server
}

func msStr(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func TestFetchClosedBars_DropsInProgressCandle(t *testing.T) {
	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/api/charts/v1/trade/PI_XBTUSD/15m")
		w.Write([]byte(`{"candles":[
			{"time":` + msStr(base.Add(30*time.Minute)) + `,"open":"101","high":"102","low":"100","close":"101.5","volume":"7"},
			{"time":` + msStr(base) + `,"open":"100","high":"101","low":"99","close":"100.5","volume":"10"},
			{"time":` + msStr(base.Add(15*time.Minute)) + `,"open":"100.5","high":"101.5","low":"100","close":"101","volume":"8"}
		]}`))
	}))

	bars, err := client.FetchClosedBars(context.Background(), "PI_XBTUSD", 100)
	require.NoError(t, err)
	// Three candles arrive unsorted; the newest (still forming) is dropped.
	require.Len(t, bars, 2)
	assert.True(t, bars[0].OpenTime.Equal(base))
	assert.True(t, bars[1].OpenTime.Equal(base.Add(15*time.Minute)))
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 8.0, bars[1].Volume)
}

func TestFetchClosedBars_SingleCandleMeansNoClosedBar(t *testing.T) {
	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candles":[{"time":` + msStr(base) + `,"open":"100","high":"101","low":"99","close":"100.5","volume":"1"}]}`))
	}))

	_, err := client.FetchClosedBars(context.Background(), "PI_XBTUSD", 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrNoClosedBar))
}

func TestFetchClosedBars_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		want      error
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, ports.ErrRateLimited, true},
		{"server error", http.StatusBadGateway, ports.ErrExchangeUnavailable, true},
		{"unauthorized", http.StatusUnauthorized, ports.ErrAuthenticationFailed, false},
		{"bad request", http.StatusBadRequest, ports.ErrInvalidRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := client.FetchClosedBars(context.Background(), "PI_XBTUSD", 10)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			assert.Equal(t, tt.retryable, ports.IsRetryable(err))
		})
	}
}

func TestGetAvailableMargin(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/accounts", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("APIKey"))
		assert.NotEmpty(t, r.Header.Get("Authent"))
		w.Write([]byte(`{"result":"success","accounts":{"flex":{"availableMargin":1234.56,"currency":"USD"}}}`))
	}))

	margin, err := client.GetAvailableMargin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234.56, margin)
}

func TestGetOpenPositions_FiltersSymbol(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/openpositions", r.URL.Path)
		w.Write([]byte(`{"result":"success","openPositions":[
			{"side":"short","symbol":"pi_xbtusd","price":43000.5,"size":0.01,"unrealizedFunding":0.1},
			{"side":"long","symbol":"pi_ethusd","price":2500,"size":1.5}
		]}`))
	}))

	positions, err := client.GetOpenPositions(context.Background(), "PI_XBTUSD")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, domain.Sell, positions[0].Side)
	assert.Equal(t, 0.01, positions[0].Size)
	assert.Equal(t, 43000.5, positions[0].Price)
}

func TestSubmitOrder_SignsAndParsesFill(t *testing.T) {
	var gotBody, gotAuthent, gotNonce string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/sendorder", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		gotBody = string(body)
		gotAuthent = r.Header.Get("Authent")
		gotNonce = r.Header.Get("Nonce")
		w.Write([]byte(`{"result":"success","sendStatus":{
			"order_id":"ord-123","status":"placed","receivedTime":"2026-02-10T14:15:03Z",
			"orderEvents":[{"type":"EXECUTION","price":"43010.5","amount":"0.0123"}]
		}}`))
	}))

	resp, err := client.SubmitOrder(context.Background(), ports.OrderRequest{
		Symbol:        "PI_XBTUSD",
		Side:          domain.Sell,
		Size:          0.0123,
		ClientOrderID: "cli-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-123", resp.OrderID)
	assert.Equal(t, "cli-1", resp.ClientOrderID)
	assert.Equal(t, 0.0123, resp.FilledSize)
	assert.Equal(t, 43010.5, resp.Price)
	assert.Contains(t, gotBody, "side=sell")
	assert.Contains(t, gotBody, "orderType=mkt")
	assert.Contains(t, gotBody, "cliOrdId=cli-1")

	// Authent = base64(HMAC-SHA512(SHA256(postData+nonce+path), secret)).
	secret, _ := base64.StdEncoding.DecodeString(testSecret)
	sum := sha256.Sum256([]byte(gotBody + gotNonce + "/api/v3/sendorder"))
	mac := hmac.New(sha512.New, secret)
	mac.Write(sum[:])
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), gotAuthent)
}

func TestSubmitOrder_GeneratesClientOrderID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","sendStatus":{"order_id":"ord-1","status":"placed"}}`))
	}))

	resp, err := client.SubmitOrder(context.Background(), ports.OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   domain.Buy,
		Size:   0.001,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ClientOrderID)
}

func TestSubmitOrder_RejectedStatuses(t *testing.T) {
	tests := []struct {
		status string
		want   error
	}{
		{"insufficientAvailableFunds", ports.ErrInsufficientFunds},
		{"marketSuspended", ports.ErrExecutionFailure},
		{"invalidSize", ports.ErrExecutionFailure},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"result":"success","sendStatus":{"status":"` + tt.status + `"}}`))
			}))
			_, err := client.SubmitOrder(context.Background(), ports.OrderRequest{
				Symbol: "PI_XBTUSD", Side: domain.Buy, Size: 0.001,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestApiError_Mapping(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"error","error":"apiLimitExceeded"}`))
	}))
	_, err := client.GetAvailableMargin(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrRateLimited))
}
