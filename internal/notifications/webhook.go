// Package notifications posts operational alerts to a Slack or Discord
// webhook.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/volatria/volatria-backend/internal/breaker"
	"github.com/volatria/volatria-backend/internal/fetcher"
	"github.com/volatria/volatria-backend/internal/httputil"
	"github.com/volatria/volatria-backend/internal/retry"
)

const defaultAppName = "Volatria"

type Sender struct {
	webhookURL string
	appName    string
	httpClient *http.Client
	retry      retry.Policy
	logger     log.Logger
}

func NewSender(webhookURL, appName string, logger log.Logger) *Sender {
	if appName == "" {
		appName = defaultAppName
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Sender{
		webhookURL: webhookURL,
		appName:    appName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.Exponential(1*time.Second, 5*time.Second),
		},
		logger: logger,
	}
}

// Send logs msg and, when a webhook is configured, posts it. Delivery
// failures are logged, never returned.
func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.appName, msg)
	level.Info(s.logger).Log("msg", "notification", "text", formatted)

	if s.webhookURL == "" {
		return
	}

	payload := s.formatPayload(formatted)
	body, err := json.Marshal(payload)
	if err != nil {
		level.Error(s.logger).Log("msg", "marshal notification", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		level.Error(s.logger).Log("msg", "failed to send notification after retries", "err", err)
		return
	}
	resp.Body.Close()
}

// BreakerChanged alerts on circuit breaker transitions.
func (s *Sender) BreakerChanged(from, to breaker.State) {
	switch to {
	case breaker.Open:
		s.Send(fmt.Sprintf("Circuit breaker OPEN (was %s): API requests are being rejected", from))
	case breaker.Closed:
		s.Send(fmt.Sprintf("Circuit breaker CLOSED (was %s): API traffic restored", from))
	default:
		s.Send(fmt.Sprintf("Circuit breaker %s (was %s)", to, from))
	}
}

// BackfillDone reports the outcome of a historical backfill pass.
func (s *Sender) BackfillDone(sum fetcher.Summary) {
	msg := fmt.Sprintf("Backfill complete: %d/%d symbols, %d points in %s",
		sum.Succeeded, sum.Symbols, sum.Points, sum.Duration.Round(time.Second))
	if len(sum.Failed) > 0 {
		msg += fmt.Sprintf(" | failed: %s", strings.Join(sum.Failed, ", "))
	}
	s.Send(msg)
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.appName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.appName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
