package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/macrolab/macindex/internal/telemetry"
)

// HTTPSourceConfig configures the upstream observation client.
type HTTPSourceConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Name           string        `yaml:"name"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	Burst          int           `yaml:"burst"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`
}

// DefaultHTTPSourceConfig returns conservative client defaults.
func DefaultHTTPSourceConfig(baseURL string) HTTPSourceConfig {
	return HTTPSourceConfig{
		BaseURL:        baseURL,
		Name:           "indicator_api",
		RequestTimeout: 10 * time.Second,
		RatePerSecond:  4.0,
		Burst:          8,
		BreakerTimeout: 30 * time.Second,
	}
}

// HTTPSource fetches observations from the indicator data API. Requests
// are rate limited and routed through a circuit breaker so a failing
// upstream degrades to missing data instead of hammering the provider.
type HTTPSource struct {
	cfg     HTTPSourceConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *telemetry.Metrics
}

// NewHTTPSource creates the client. metrics may be nil.
func NewHTTPSource(cfg HTTPSourceConfig, metrics *telemetry.Metrics) *HTTPSource {
	s := &HTTPSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		metrics: metrics,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A gap in the series is an answer, not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).
				Msg("source circuit breaker state change")
			if metrics != nil {
				if to == gobreaker.StateOpen {
					metrics.BreakerOpen.Set(1)
				} else {
					metrics.BreakerOpen.Set(0)
				}
			}
		},
	})
	return s
}

// observationPayload is the upstream wire shape.
type observationPayload struct {
	Series    string  `json:"series"`
	Date      string  `json:"date"`
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
}

// Fetch retrieves one observation. A 404 or an unavailable payload maps
// to ErrUnavailable; transport and server errors are real errors and
// count against the circuit breaker.
func (s *HTTPSource) Fetch(ctx context.Context, seriesName string, date time.Time) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.SourceRequests.WithLabelValues(seriesName).Inc()
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.doFetch(ctx, seriesName, date)
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return 0, ErrUnavailable
		}
		if s.metrics != nil {
			s.metrics.SourceErrors.WithLabelValues(seriesName).Inc()
		}
		return 0, err
	}
	return result.(float64), nil
}

func (s *HTTPSource) doFetch(ctx context.Context, seriesName string, date time.Time) (interface{}, error) {
	endpoint := fmt.Sprintf("%s/v1/observations/%s?date=%s",
		s.cfg.BaseURL, url.PathEscape(seriesName), date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", seriesName, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", seriesName, resp.StatusCode)
	}

	var payload observationPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetch %s: decode: %w", seriesName, err)
	}
	if !payload.Available {
		return nil, ErrUnavailable
	}
	return payload.Value, nil
}
