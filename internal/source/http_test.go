package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewHTTPProvider(SourceMetabolic, HTTPConfig{
		Endpoint:   srv.URL,
		APIKey:     "secret",
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		RateLimit:  1000,
	})
	require.NoError(t, err)
	return p
}

func TestHTTPProvider_Success(t *testing.T) {
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metabolic", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req httpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u1", req.Context.UserID)
		assert.Len(t, req.Logs, 1)

		w.Write([]byte(`{"risk_scores":{"fuel_risk":0.75,"carb_need":0.5},"rationale":"under-fueled"}`))
	})

	res := p.Evaluate(context.Background(), UserContext{UserID: "u1"}, []Log{{Date: "2026-03-01"}})
	require.True(t, res.IsOk())
	assert.Equal(t, 0.75, res.Opinion.RiskScores[ScoreFuelRisk])
	assert.Equal(t, "under-fueled", res.Opinion.Rationale)
}

func TestHTTPProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"risk_scores":{"fuel_risk":0.2}}`))
	})

	res := p.Evaluate(context.Background(), UserContext{}, nil)
	require.True(t, res.IsOk())
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  Reason
		target  error
	}{
		{
			name:    "non json body",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>oops</html>")) },
			reason:  ReasonMalformed,
			target:  ErrMalformedOutput,
		},
		{
			name:    "schema violation",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"score":1}`)) },
			reason:  ReasonMalformed,
			target:  ErrMalformedOutput,
		},
		{
			name:    "persistent 503",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			reason:  ReasonNetwork,
			target:  ErrSourceUnavailable,
		},
		{
			name:    "client error not retried",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			reason:  ReasonNetwork,
			target:  ErrSourceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestHTTPProvider(t, tt.handler)
			res := p.Evaluate(context.Background(), UserContext{}, nil)
			assert.False(t, res.IsOk())
			assert.Equal(t, tt.reason, res.Reason)
			assert.ErrorIs(t, res.Err, tt.target)
		})
	}
}

func TestHTTPProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := p.Evaluate(ctx, UserContext{}, nil)
	assert.Equal(t, ReasonTimeout, res.Reason)
}

func TestNewHTTPProvider_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPProvider(SourceStress, HTTPConfig{})
	require.Error(t, err)
}
