package bridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskbridge/internal/config"
	"taskbridge/internal/lineproto"
)

// DeliveryClient posts encoded point batches to the ingestion endpoint.
// Params: shared HTTP client with request timeout.
// Returns: delivery client instance.
type DeliveryClient struct {
	client *http.Client
}

// NewDeliveryClient creates a delivery client.
// Params: timeout per-request timeout.
// Returns: configured delivery client.
func NewDeliveryClient(timeout time.Duration) *DeliveryClient {
	return &DeliveryClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send encodes points and performs one authenticated write. Points that
// encode to nothing are dropped; when no lines survive, no request is made.
// There is no retry here: retry policy belongs to the caller.
// Params: ctx for cancellation; cfg connection settings; points batch.
// Returns: ErrNotConfigured, *UpstreamError, *TransportError, or nil.
func (c *DeliveryClient) Send(ctx context.Context, cfg config.InfluxConfig, points []lineproto.Point) error {
	if !cfg.Configured() {
		return ErrNotConfigured
	}

	lines := make([]string, 0, len(points))
	for _, point := range points {
		line := lineproto.Encode(point)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil
	}

	target, err := writeURL(cfg.URL)
	if err != nil {
		return fmt.Errorf("parse influx url: %w", err)
	}

	body := strings.Join(lines, "\n")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+cfg.Token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength+1))
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncateErrorBody(strings.TrimSpace(string(raw))),
		}
	}
	return nil
}

// writeURL appends the millisecond precision marker to the endpoint URL
// when it is not already present, so the far end interprets timestamps
// as milliseconds.
// Params: raw configured endpoint URL.
// Returns: write URL with precision query parameter or parse error.
func writeURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	query := parsed.Query()
	if query.Get("precision") == "" {
		query.Set("precision", "ms")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}
