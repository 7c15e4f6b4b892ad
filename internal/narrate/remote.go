package narrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	gobreaker "github.com/sony/gobreaker/v2"

	"benefit-recommendation-api/internal/logging"
	"benefit-recommendation-api/internal/metrics"
	"benefit-recommendation-api/internal/models"
)

const breakerName = "narration"

// RemoteConfig configures a RemoteNarrator.
type RemoteConfig struct {
	Endpoint         string
	Timeout          time.Duration
	RetryMax         int
	RetryWaitMin     time.Duration
	RetryWaitMax     time.Duration
	FailureThreshold uint32        // consecutive failures that open the circuit
	OpenTimeout      time.Duration // time the circuit stays open
}

// RemoteNarrator asks an HTTP endpoint to write the messages.
//
// Request:  {"plan": {...}, "items": [Item, ...]}
// Response: {"descriptions": [{"id": "...", "message": "..."}]}
type RemoteNarrator struct {
	endpoint string
	client   *retryablehttp.Client
	cb       *gobreaker.CircuitBreaker[map[string]string]
}

type remoteRequest struct {
	Plan  models.Plan `json:"plan"`
	Items []Item      `json:"items"`
}

type remoteResponse struct {
	Descriptions []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"descriptions"`
}

func NewRemoteNarrator(cfg RemoteConfig) *RemoteNarrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	client := retryablehttp.NewClient()
	client.Logger = leveledLogger{}
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	client.HTTPClient.Timeout = cfg.Timeout

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[map[string]string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &RemoteNarrator{
		endpoint: cfg.Endpoint,
		client:   client,
		cb:       cb,
	}
}

func (r *RemoteNarrator) Name() string { return "remote" }

// State reports the circuit breaker state.
func (r *RemoteNarrator) State() gobreaker.State {
	return r.cb.State()
}

func (r *RemoteNarrator) Narrate(ctx context.Context, plan models.Plan, items []Item) (map[string]string, error) {
	return r.cb.Execute(func() (map[string]string, error) {
		return r.call(ctx, plan, items)
	})
}

func (r *RemoteNarrator) call(ctx context.Context, plan models.Plan, items []Item) (map[string]string, error) {
	body, err := json.Marshal(remoteRequest{Plan: plan, Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to encode narration request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build narration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("narration request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("narration endpoint returned status %d", resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode narration response: %w", err)
	}

	out := make(map[string]string, len(decoded.Descriptions))
	for _, d := range decoded.Descriptions {
		if d.ID != "" && d.Message != "" {
			out[d.ID] = d.Message
		}
	}
	return out, nil
}

// IsCircuitOpen reports whether err was returned because the breaker
// rejected the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// leveledLogger routes retryablehttp's logs to zerolog at debug level;
// errors stay warnings.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) {
	logging.Warn().Fields(kv).Msg(msg)
}

func (leveledLogger) Warn(msg string, kv ...interface{}) {
	logging.Warn().Fields(kv).Msg(msg)
}

func (leveledLogger) Info(msg string, kv ...interface{}) {
	logging.Debug().Fields(kv).Msg(msg)
}

func (leveledLogger) Debug(msg string, kv ...interface{}) {
	logging.Debug().Fields(kv).Msg(msg)
}
