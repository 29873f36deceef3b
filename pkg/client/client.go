// Package client provides the HTTP client for ArcGIS REST API Map
// Services: it fetches layer descriptors, executes partitioned layer
// queries, and orchestrates the fetch of a complete dataset.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mapflow/arcquery/pkg/dataset"
	"github.com/mapflow/arcquery/pkg/pagination"
)

// Prometheus metrics for Map Service requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcgis_requests_total",
		Help: "Total Map Service requests by request kind and status",
	}, []string{"kind", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arcgis_request_duration_seconds",
		Help:    "Map Service request duration in seconds by request kind",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcgis_errors_total",
		Help: "Total Map Service errors by class",
	}, []string{"class"})
)

// Request kinds used as metric labels.
const (
	kindMetadata = "metadata"
	kindCount    = "count"
	kindQuery    = "query"
)

// Config holds the client configuration.
type Config struct {
	// HTTPClient is the transport used for all requests. When nil a
	// client with sane connection pooling and Timeout is created.
	HTTPClient *http.Client

	// UserAgent identifies the client to the service.
	UserAgent string

	// Timeout applies to each HTTP exchange when HTTPClient is owned by
	// the client.
	Timeout time.Duration

	// Dispatch configures how partition fetches are scheduled.
	Dispatch pagination.Config

	// Dedupe is the aggregation policy for boundary-overlapping records.
	Dedupe dataset.DedupePolicy
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent: "arcquery/1.0",
		Timeout:   30 * time.Second,
		Dispatch:  pagination.DefaultConfig(),
		Dedupe:    dataset.DedupePassThrough,
	}
}

// Client is a Map Service HTTP client. A single Client may serve any
// number of layer sessions.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new Map Service client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %v)", cfg.Timeout)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newOutbound(cfg.Timeout)
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     log.With().Str("component", "arcgis-client").Logger(),
	}, nil
}

// newOutbound builds the owned outbound HTTP client.
func newOutbound(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// get performs one GET against a service endpoint and returns the body.
// Transport failures and non-2xx statuses become ServiceErrors; there is
// exactly one attempt, no retry.
func (c *Client) get(ctx context.Context, kind, rawURL string, params url.Values) ([]byte, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("kind", kind).
		Str("url", rawURL).
		Msg("Executing service request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(kind, "network_error").Inc()
		return nil, &ServiceError{
			Class: ErrorClassNetwork,
			URL:   rawURL,
			Err:   err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(kind, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("kind", kind).
			Str("url", rawURL).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Service request error")
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Class:      class,
			URL:        rawURL,
			Message:    statusMessage(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			URL:        rawURL,
			Message:    "read body",
			Err:        err,
		}
	}
	return body, nil
}
