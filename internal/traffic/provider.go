// Package traffic wraps an external traffic-aware directions service behind
// opt.TravelEstimator. Lookups are cached, rate limited and time-boxed; any
// failure falls back to the static average-speed estimate.
package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fieldroute/internal/model"
)

// ErrNoAPIKey is returned by HTTPProvider when no credentials are configured.
var ErrNoAPIKey = errors.New("traffic: api key is empty")

// Result is one origin/destination duration. InTraffic is zero when the
// provider has no live traffic for the pair.
type Result struct {
	Duration  time.Duration `json:"duration"`
	InTraffic time.Duration `json:"inTraffic"`
}

// Directions is the traffic collaborator.
type Directions interface {
	Duration(ctx context.Context, from, to model.Coordinate, departAt time.Time) (Result, error)
}

const DefaultBaseURL = "https://maps.googleapis.com"

// HTTPProvider talks to a Distance Matrix compatible JSON endpoint.
type HTTPProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
	now     func() time.Time
}

func NewHTTPProvider(apiKey, baseURL string, timeout time.Duration) *HTTPProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status            string       `json:"status"`
			Duration          *matrixValue `json:"duration"`
			DurationInTraffic *matrixValue `json:"duration_in_traffic"`
		} `json:"elements"`
	} `json:"rows"`
}

type matrixValue struct {
	Value float64 `json:"value"`
}

func (p *HTTPProvider) Duration(ctx context.Context, from, to model.Coordinate, departAt time.Time) (Result, error) {
	if p.apiKey == "" {
		return Result{}, ErrNoAPIKey
	}
	q := url.Values{}
	q.Set("origins", latLng(from))
	q.Set("destinations", latLng(to))
	q.Set("mode", "driving")
	// the service rejects departure times in the past
	if departAt.After(p.now()) {
		q.Set("departure_time", strconv.FormatInt(departAt.Unix(), 10))
	} else {
		q.Set("departure_time", "now")
	}
	q.Set("key", p.apiKey)
	endpoint := p.baseURL + "/maps/api/distancematrix/json?" + q.Encode()

	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("distance matrix request: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return Result{}, fmt.Errorf("decode distance matrix: %w", err)
	}
	if mr.Status != "OK" {
		return Result{}, fmt.Errorf("distance matrix status %s: %s", mr.Status, mr.ErrorMessage)
	}
	if len(mr.Rows) != 1 || len(mr.Rows[0].Elements) != 1 {
		return Result{}, errors.New("distance matrix: expected a single element")
	}
	el := mr.Rows[0].Elements[0]
	if el.Status != "OK" || el.Duration == nil {
		return Result{}, fmt.Errorf("distance matrix element status %s", el.Status)
	}
	out := Result{Duration: seconds(el.Duration.Value)}
	if el.DurationInTraffic != nil {
		out.InTraffic = seconds(el.DurationInTraffic.Value)
	}
	return out, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (p *HTTPProvider) do(req *http.Request) (*http.Response, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries 429, 5xx and network errors with exponential backoff
// while the context allows.
func (p *HTTPProvider) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}
		resp, err := p.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusTooManyRequests, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}
		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func latLng(c model.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 6, 64)
}

func seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }
