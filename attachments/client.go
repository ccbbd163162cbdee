package attachments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/reportree/merge"
)

const (
	defaultFetchTimeout    = 30 * time.Second
	defaultMaxIdleConns    = 10
	defaultIdleConnTimeout = 30 * time.Second
	maxAttachmentSize      = 256 << 20
)

// Client fetches attachments from a report server
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	log     log.Logger
	tracer  trace.Tracer
}

// NewClient creates a client for the server at baseURL. A zero timeout
// selects the default.
func NewClient(baseURL string, timeout time.Duration, logger log.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid attachment server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid attachment server url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    defaultMaxIdleConns,
				IdleConnTimeout: defaultIdleConnTimeout,
			},
		},
		timeout: timeout,
		log:     logger,
		tracer:  otel.Tracer("attachment client"),
	}, nil
}

// URL returns the address of the assertions attachment of a part
func (c *Client) URL(reportUID, partUID string) string {
	return fmt.Sprintf("%s/reports/%s/attachments/%s",
		c.baseURL, url.PathEscape(reportUID), url.PathEscape(merge.AttachmentName(partUID)))
}

// Fetch downloads and decodes the assertions attachment of one part
func (c *Client) Fetch(ctx context.Context, reportUID, partUID string) (Assertions, error) {
	if err := ValidateName(reportUID); err != nil {
		return nil, fmt.Errorf("report uid: %w", err)
	}
	if err := ValidateName(partUID); err != nil {
		return nil, fmt.Errorf("part uid: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("attachment %s", merge.AttachmentName(partUID)))
	defer span.End()
	span.SetAttributes(
		attribute.String("report_uid", reportUID),
		attribute.String("part_uid", partUID),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.URL(reportUID, partUID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug("Fetching attachment", "url", target)
	resp, err := c.client.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		span.SetStatus(codes.Error, "not found")
		return nil, fmt.Errorf("%s: %w", target, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("fetching %s: unexpected status %s", target, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	var out Assertions
	if err := json.Unmarshal(body, &out); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("decoding %s: %w", target, err)
	}
	return out, nil
}
