// Package krakenws maintains a websocket subscription to the Kraken
// Futures candle feed. The stream is advisory only: the REST charts fetch
// stays the source of truth for decisions, the feed is used to cross-check
// the bars the cycle acted on.
package krakenws

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

const (
	// candleFeed is the 15m candle channel.
	candleFeed = "candles_trade_15m"

	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second

	// retainedBars bounds the in-memory comparison window.
	retainedBars = 32
)

// Config holds the stream configuration.
type Config struct {
	URL     string // e.g. wss://futures.kraken.com/ws/v1
	Symbol  string
	Logger  ports.Logger
	Dialer  *websocket.Dialer
	OnDrift func(rest, ws domain.Candle) // invoked on a mismatch, optional
}

// Stream holds the last candles seen on the websocket, keyed by open time.
type Stream struct {
	cfg    Config
	dialer *websocket.Dialer

	mu      sync.RWMutex
	candles map[int64]domain.Candle
}

type subscribeMessage struct {
	Event      string   `json:"event"`
	Feed       string   `json:"feed"`
	ProductIDs []string `json:"product_ids"`
}

type feedMessage struct {
	Feed      string `json:"feed"`
	ProductID string `json:"product_id"`
	Candle    *struct {
		Time   int64       `json:"time"`
		Open   json.Number `json:"open"`
		High   json.Number `json:"high"`
		Low    json.Number `json:"low"`
		Close  json.Number `json:"close"`
		Volume json.Number `json:"volume"`
	} `json:"candle"`
}

// New creates a candle stream.
func New(cfg Config) (*Stream, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for the candle stream")
	}
	if cfg.URL == "" || cfg.Symbol == "" {
		return nil, fmt.Errorf("websocket URL and symbol are required")
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Stream{
		cfg:     cfg,
		dialer:  dialer,
		candles: make(map[int64]domain.Candle),
	}, nil
}

// Run connects and consumes the feed until ctx is cancelled, reconnecting
// with jittered backoff on every failure.
func (s *Stream) Run(ctx context.Context) error {
	b := &backoff.Backoff{Min: time.Second, Max: time.Minute, Factor: 2, Jitter: true}
	for {
		if err := s.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay := b.Duration()
			s.cfg.Logger.Warn(ctx, "Candle stream disconnected, reconnecting", map[string]interface{}{
				"error": err.Error(),
				"delay": delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		b.Reset()
	}
}

func (s *Stream) runOnce(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.cfg.URL, err)
	}
	defer conn.Close()

	sub := subscribeMessage{Event: "subscribe", Feed: candleFeed, ProductIDs: []string{s.cfg.Symbol}}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribing to %s: %w", candleFeed, err)
	}
	s.cfg.Logger.Info(ctx, "Candle stream connected", map[string]interface{}{
		"url":    s.cfg.URL,
		"symbol": s.cfg.Symbol,
	})

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go s.pingLoop(ctx, conn)

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading candle feed: %w", err)
		}
		s.handleMessage(ctx, data)
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Stream) handleMessage(ctx context.Context, data []byte) {
	var msg feedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.cfg.Logger.Debug(ctx, "Ignoring unparseable feed message", map[string]interface{}{"error": err.Error()})
		return
	}
	if msg.Feed != candleFeed || msg.Candle == nil {
		return
	}

	candle, err := translateFeedCandle(msg)
	if err != nil {
		s.cfg.Logger.Warn(ctx, "Ignoring malformed feed candle", map[string]interface{}{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.candles[candle.TimestampMS()] = candle
	if len(s.candles) > retainedBars {
		oldest := int64(math.MaxInt64)
		for ts := range s.candles {
			if ts < oldest {
				oldest = ts
			}
		}
		delete(s.candles, oldest)
	}
	s.mu.Unlock()
}

func translateFeedCandle(msg feedMessage) (domain.Candle, error) {
	open, err := msg.Candle.Open.Float64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing open: %w", err)
	}
	high, err := msg.Candle.High.Float64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing high: %w", err)
	}
	low, err := msg.Candle.Low.Float64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing low: %w", err)
	}
	closePrice, err := msg.Candle.Close.Float64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing close: %w", err)
	}
	var volume float64
	if msg.Candle.Volume != "" {
		if volume, err = msg.Candle.Volume.Float64(); err != nil {
			return domain.Candle{}, fmt.Errorf("parsing volume: %w", err)
		}
	}
	return domain.Candle{
		OpenTime: time.UnixMilli(msg.Candle.Time).UTC(),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
	}, nil
}

// Compare checks REST bars against the feed's view of the same bars and
// returns how many mismatched. Bars the feed has not seen are skipped.
func (s *Stream) Compare(ctx context.Context, bars []domain.Candle) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mismatches := 0
	for _, rest := range bars {
		ws, ok := s.candles[rest.TimestampMS()]
		if !ok {
			continue
		}
		if closeEnough(rest.Close, ws.Close) && closeEnough(rest.High, ws.High) && closeEnough(rest.Low, ws.Low) {
			continue
		}
		mismatches++
		s.cfg.Logger.Warn(ctx, "REST and websocket disagree on a bar", map[string]interface{}{
			"open_time":  rest.OpenTime,
			"rest_close": rest.Close,
			"ws_close":   ws.Close,
		})
		if s.cfg.OnDrift != nil {
			s.cfg.OnDrift(rest, ws)
		}
	}
	return mismatches
}

// closeEnough tolerates the half-tick rounding the two transports apply.
func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= 0.5
}
