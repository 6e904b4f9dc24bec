// Package krakenfutures implements the exchange-facing ports against the
// Kraken Futures REST API: the charts service for closed bars and the
// derivatives API for account data and order submission.
package krakenfutures

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

const (
	defaultBaseURL  = "https://futures.kraken.com/derivatives"
	defaultChartURL = "https://futures.kraken.com"

	defaultTimeout = 15 * time.Second
)

// Config holds configuration for the Kraken Futures client adapter.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // derivatives API base, defaults to production
	ChartURL  string // charts service base, defaults to production
	Timeout   time.Duration
	Logger    ports.Logger
}

// Client talks to Kraken Futures. It implements ports.MarketDataSource,
// ports.AccountSource and ports.OrderExecutor.
type Client struct {
	httpClient *http.Client
	baseURL    string
	chartURL   string
	apiKey     string
	apiSecret  []byte
	logger     ports.Logger
	nonce      func() string
}

// New creates a Kraken Futures client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Kraken Futures client")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or APISecret is empty. Client will only work for public endpoints.")
	}

	var secret []byte
	if cfg.APISecret != "" {
		var err error
		secret, err = base64.StdEncoding.DecodeString(cfg.APISecret)
		if err != nil {
			return nil, fmt.Errorf("decoding API secret: %w", err)
		}
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	chartURL := strings.TrimSuffix(cfg.ChartURL, "/")
	if chartURL == "" {
		chartURL = defaultChartURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   baseURL,
		chartURL:  chartURL,
		apiKey:    cfg.APIKey,
		apiSecret: secret,
		logger:    cfg.Logger,
		nonce: func() string {
			return strconv.FormatInt(time.Now().UnixNano()/int64(time.Millisecond), 10)
		},
	}, nil
}

// authent computes the Authent header for a private endpoint:
// base64(HMAC-SHA512(SHA256(postData + nonce + endpointPath), secret)).
func (c *Client) authent(endpointPath, nonce, postData string) string {
	sum := sha256.Sum256([]byte(postData + nonce + endpointPath))
	mac := hmac.New(sha512.New, c.apiSecret)
	mac.Write(sum[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// doPrivate issues a signed request against the derivatives API.
// endpointPath is the path as signed, e.g. "/api/v3/accounts".
func (c *Client) doPrivate(ctx context.Context, method, endpointPath string, params url.Values) ([]byte, error) {
	postData := ""
	if params != nil {
		postData = params.Encode()
	}
	reqURL := c.baseURL + endpointPath
	var body io.Reader
	if method == http.MethodGet {
		if postData != "" {
			reqURL += "?" + postData
		}
	} else {
		body = strings.NewReader(postData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	nonce := c.nonce()
	req.Header.Set("APIKey", c.apiKey)
	req.Header.Set("Nonce", nonce)
	req.Header.Set("Authent", c.authent(endpointPath, nonce, postData))
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return c.do(req)
}

// doPublic issues an unsigned request against the given absolute URL.
func (c *Client) doPublic(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return data, &httpError{status: resp.StatusCode, body: string(data)}
	}
	return data, nil
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	body := e.body
	if len(body) > 256 {
		body = body[:256]
	}
	return fmt.Sprintf("HTTP %d: %s", e.status, body)
}

// handleError translates transport and API failures into the standard
// ports errors so the cycle can classify them without knowing Kraken.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var mappedErr error
	var httpErr *httpError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		mappedErr = ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		mappedErr = ports.ErrContextCanceled
	case errors.As(err, &httpErr):
		switch {
		case httpErr.status == http.StatusTooManyRequests:
			mappedErr = ports.ErrRateLimited
		case httpErr.status == http.StatusUnauthorized || httpErr.status == http.StatusForbidden:
			mappedErr = ports.ErrAuthenticationFailed
		case httpErr.status >= 500:
			mappedErr = ports.ErrExchangeUnavailable
		default:
			mappedErr = ports.ErrInvalidRequest
		}
		fields["httpStatus"] = httpErr.status
	case errors.As(err, &netErr) && netErr.Timeout():
		mappedErr = ports.ErrTimeout
	default:
		mappedErr = ports.ErrNetwork
	}

	c.logger.Error(ctx, err, "Kraken Futures API error", fields)
	return fmt.Errorf("%w: %w", mappedErr, err)
}

// apiError maps a Kraken result/error payload onto the standard errors.
func (c *Client) apiError(ctx context.Context, operation, apiErr string) error {
	var mappedErr error
	lower := strings.ToLower(apiErr)
	switch {
	case strings.Contains(lower, "apilimitexceeded"):
		mappedErr = ports.ErrRateLimited
	case strings.Contains(lower, "authentication"), strings.Contains(lower, "nonce"):
		mappedErr = ports.ErrAuthenticationFailed
	case strings.Contains(lower, "insufficientavailablefunds"):
		mappedErr = ports.ErrInsufficientFunds
	case strings.Contains(lower, "unavailable"):
		mappedErr = ports.ErrExchangeUnavailable
	default:
		mappedErr = ports.ErrInvalidRequest
	}
	c.logger.Error(ctx, mappedErr, "Kraken Futures API rejected the request", map[string]interface{}{
		"operation": operation,
		"apiError":  apiErr,
	})
	return fmt.Errorf("%w: %s", mappedErr, apiErr)
}
