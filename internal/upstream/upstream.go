package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const ewmaAlpha = 0.2

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 4 << 20

// StatusError reports a non-2xx upstream response. Breaker trip
// filters match on it to keep client errors from counting against a
// service.
type StatusError struct {
	Host string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Host, e.Code)
}

// Upstream is one remote HTTP dependency: its URL, the client used to
// reach it and a moving average of observed response times.
type Upstream struct {
	url    *url.URL
	client *http.Client

	mutex            sync.Mutex
	ewmaResponseTime time.Duration
	hasEWMA          bool
}

// New creates an Upstream for the given URL. A nil client falls back
// to http.DefaultClient.
func New(url *url.URL, client *http.Client) *Upstream {
	if client == nil {
		client = http.DefaultClient
	}

	return &Upstream{
		url:    url,
		client: client,
	}
}

// URL returns the upstream address.
func (u *Upstream) URL() *url.URL {
	return u.url
}

// Fetch issues a GET against the upstream and decodes the JSON body.
// Any transport error, non-2xx status or undecodable body is a
// failure; the retry and breaker layers above decide what to do with
// it. Every completed round trip feeds the EWMA, failed statuses
// included.
func (u *Upstream) Fetch(ctx context.Context, args ...any) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url.String(), nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	u.RecordResponse(time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Host: u.url.Host, Code: resp.StatusCode}
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", u.url.Host, err)
	}

	return payload, nil
}

// RecordResponse updates the exponentially weighted moving average
// (EWMA) response time using the latest round trip duration.
func (u *Upstream) RecordResponse(duration time.Duration) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		u.ewmaResponseTime = duration
		u.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	u.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(u.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response
// time. Returns 0 if no responses have been recorded yet.
func (u *Upstream) EWMATime() time.Duration {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		return 0
	}

	return u.ewmaResponseTime
}
