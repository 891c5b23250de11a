package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTP provider defaults.
const (
	defaultHTTPTimeout   = 5 * time.Second
	defaultRateLimit     = 10.0
	defaultBurst         = 5
	defaultBaseBackoff   = 200 * time.Millisecond
	maxResponseBodyBytes = 1 << 20
)

// HTTPConfig configures an HTTPProvider.
type HTTPConfig struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	MaxRetries int
	Backoff    time.Duration
}

// HTTPProvider calls a remote recommendation service that speaks JSON.
type HTTPProvider struct {
	id         ID
	endpoint   string
	apiKey     string `json:"-"`
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// NewHTTPProvider creates a provider for source id.
func NewHTTPProvider(id ID, cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%s source: endpoint required", id)
	}

	timeout := defaultHTTPTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	limit := defaultRateLimit
	if cfg.RateLimit > 0 {
		limit = cfg.RateLimit
	}
	burst := defaultBurst
	if cfg.Burst > 0 {
		burst = cfg.Burst
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := defaultBaseBackoff
	if cfg.Backoff > 0 {
		backoff = cfg.Backoff
	}

	return &HTTPProvider{
		id:         id,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		maxRetries: retries,
		backoff:    backoff,
		now:        time.Now,
	}, nil
}

// ID returns the source this provider answers for.
func (p *HTTPProvider) ID() ID { return p.id }

// httpRequest is the wire request sent to remote sources.
type httpRequest struct {
	Source  ID          `json:"source"`
	Context UserContext `json:"context"`
	Logs    []Log       `json:"logs"`
}

// Evaluate posts the context to {endpoint}/{source} and decodes the reply.
func (p *HTTPProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	if err := p.limiter.Wait(ctx); err != nil {
		return Unavailable(p.id, ReasonTimeout, fmt.Errorf("rate limiter: %w", err))
	}

	payload, err := json.Marshal(httpRequest{Source: p.id, Context: uc, Logs: logs})
	if err != nil {
		return Unavailable(p.id, ReasonNetwork, fmt.Errorf("encoding request: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Unavailable(p.id, ReasonTimeout, ctx.Err())
			}
		}

		body, err := p.doRequest(ctx, payload)
		if err == nil {
			op, err := Decode(p.id, body, p.now())
			if err != nil {
				return Unavailable(p.id, ReasonMalformed, err)
			}
			return Ok(op)
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	if ctx.Err() != nil {
		return Unavailable(p.id, ReasonTimeout, lastErr)
	}
	return Unavailable(p.id, ReasonNetwork, lastErr)
}

func (p *HTTPProvider) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/"+string(p.id), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("reading response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &retryableError{err: errors.New("rate limited (429)")}
	case resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("server error (%d)", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
