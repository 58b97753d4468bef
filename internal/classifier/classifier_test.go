package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/domain"
)

func TestHTTPClassifierRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2026-02-10", req.Row.Date)
		assert.Equal(t, 3, req.Activity.CheckedItems)
		_ = json.NewEncoder(w).Encode(Result{Status: domain.FlagOnTrack, Healthy: domain.FlagMixed, Reasoning: "ok"})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, time.Second)
	got, err := c.Classify(context.Background(), Request{
		Row:      domain.FoodLogRow{Date: "2026-02-10"},
		Activity: ActivitySummary{CheckedItems: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FlagOnTrack, got.Status)
	assert.Equal(t, domain.FlagMixed, got.Healthy)
}

func TestHTTPClassifierErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
		{"unknown flag", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"great","healthy":"mixed"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewHTTPClassifier(srv.URL, time.Second).Classify(context.Background(), Request{})
			assert.Error(t, err)
		})
	}
}

func TestHTTPClassifierHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTPClassifier(srv.URL, 5*time.Second).Classify(ctx, Request{})
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Classify(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrDisabled)
}
