// Package brevo delivers operator notifications as transactional email via
// the Brevo API. Delivery is best-effort: the trading cycle logs failures
// and moves on.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

const defaultBaseURL = "https://api.brevo.com"

// Config holds the notifier configuration.
type Config struct {
	APIKey      string
	SenderName  string
	SenderEmail string
	ToEmail     string
	BaseURL     string // overridable for tests
	Timeout     time.Duration
	Logger      ports.Logger
}

// Notifier implements ports.Notifier over the Brevo SMTP email endpoint.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
	logger     ports.Logger
}

// New creates a Brevo notifier.
func New(cfg Config) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for the Brevo notifier")
	}
	if cfg.APIKey == "" || cfg.SenderEmail == "" || cfg.ToEmail == "" {
		return nil, fmt.Errorf("Brevo API key, sender and recipient are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

type emailPayload struct {
	Sender struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email"`
	} `json:"sender"`
	To []struct {
		Email string `json:"email"`
	} `json:"to"`
	Subject     string `json:"subject"`
	TextContent string `json:"textContent"`
}

// Notify sends one event as an email.
func (n *Notifier) Notify(ctx context.Context, event ports.Event) error {
	payload := emailPayload{
		Subject:     fmt.Sprintf("[%s] %s", event.Kind, event.Subject),
		TextContent: event.Body,
	}
	payload.Sender.Name = n.cfg.SenderName
	payload.Sender.Email = n.cfg.SenderEmail
	payload.To = []struct {
		Email string `json:"email"`
	}{{Email: n.cfg.ToEmail}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("api-key", n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending notification: %w", ports.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notification rejected with HTTP %d: %s", resp.StatusCode, detail)
	}

	n.logger.Debug(ctx, "Notification sent", map[string]interface{}{
		"kind":    event.Kind,
		"subject": event.Subject,
	})
	return nil
}

// Noop discards every event. Used when no notifier is configured.
type Noop struct{}

// Notify implements ports.Notifier.
func (Noop) Notify(context.Context, ports.Event) error { return nil }
