// Package classifier is the boundary to the external day-flag classifier,
// which rates a day's eating as on track, mixed, off track or incomplete.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"alcyxob/health-tracker/internal/domain"
)

// ErrDisabled is returned when no classifier is configured.
var ErrDisabled = errors.New("day-flag classifier disabled")

// ActivitySummary describes the workout signal of the week a day belongs to.
type ActivitySummary struct {
	WeekStart        string   `json:"week_start"`
	CheckedItems     int      `json:"checked_items"`
	TotalItems       int      `json:"total_items"`
	ActiveCategories []string `json:"active_categories"`
}

// Request is everything the classifier sees about one day.
type Request struct {
	Row      domain.FoodLogRow  `json:"row"`
	Events   []domain.FoodEvent `json:"events"`
	Previous *domain.FoodLogRow `json:"previous"`
	Activity ActivitySummary    `json:"activity"`
}

// Result carries the two flags and the classifier's explanation.
type Result struct {
	Status    domain.DayFlag `json:"status"`
	Healthy   domain.DayFlag `json:"healthy"`
	Reasoning string         `json:"reasoning"`
}

// Classifier rates a day. Implementations may be slow or fail; callers bound
// the call with a context deadline and keep previous flags on error.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}

// Disabled is the classifier used when none is configured.
type Disabled struct{}

func (Disabled) Classify(context.Context, Request) (Result, error) {
	return Result{}, ErrDisabled
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Classify(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// HTTPClassifier posts the request as JSON and expects a Result back.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a classifier client for url. timeout bounds the
// whole HTTP exchange in addition to any caller deadline.
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *HTTPClassifier) Classify(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode classifier request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build classifier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode classifier response: %w", err)
	}
	if !out.Status.Valid() || !out.Healthy.Valid() {
		return Result{}, fmt.Errorf("classifier returned unknown flags %q/%q", out.Status, out.Healthy)
	}
	return out, nil
}
