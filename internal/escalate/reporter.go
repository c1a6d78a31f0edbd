package escalate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// ReporterOption configures the reporter.
type ReporterOption func(*Reporter)

// WithTimeout bounds each delivery attempt.
func WithTimeout(timeout time.Duration) ReporterOption {
	return func(r *Reporter) {
		r.client.SetTimeout(timeout)
	}
}

// WithAPIKey authenticates deliveries to the collector.
func WithAPIKey(key string) ReporterOption {
	return func(r *Reporter) {
		if key != "" {
			r.client.SetHeader("X-API-Key", key)
		}
	}
}

// Reporter delivers reports to the collector endpoint over HTTP.
type Reporter struct {
	client *resty.Client
	url    string
}

var _ Sender = (*Reporter)(nil)

// NewReporter creates a reporter for the collector URL. Delivery is
// single-shot: retry, if any, is the collector's concern.
func NewReporter(url string, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		client: resty.New().SetTimeout(defaultTimeout).SetRetryCount(0),
		url:    url,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send posts the report. Non-2xx responses are errors.
func (r *Reporter) Send(ctx context.Context, report Report) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(report).
		Post(r.url)
	if err != nil {
		return fmt.Errorf("collector request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("collector returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
