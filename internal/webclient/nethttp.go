package webclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ladle-dev/ladle/internal/logging"
)

// NetHTTPClient is the net/http backed WebClient. Redirects are followed by
// the underlying http.Client.
type NetHTTPClient struct {
	client *http.Client
	cfg    Config
	logger logging.Logger
}

// NewNetHTTPClient builds the default backend. Pass a non-nil httpClient to
// override transport behavior (tests inject httptest clients here).
func NewNetHTTPClient(cfg Config, logger logging.Logger, httpClient *http.Client) (*NetHTTPClient, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	componentLogger := logger.With(logging.Field{Key: "backend", Value: BackendNetHTTP})
	componentLogger.Debug("created nethttp webclient",
		logging.Field{Key: "timeout", Value: cfg.Timeout.String()})

	return &NetHTTPClient{client: httpClient, cfg: cfg, logger: componentLogger}, nil
}

// Do executes the request. The context carries cancellation into the
// transport, so a timeout aborts the in-flight request rather than just
// abandoning it.
func (c *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" && c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	c.logger.Debug("sending http request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: req.URL})

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("http request failed",
			logging.Field{Key: "url", Value: req.URL},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	// Declared length can reject before downloading anything, but it can
	// also lie or be absent, so the read below is capped as well.
	if c.cfg.MaxBodyBytes > 0 && resp.ContentLength > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", ErrTooLarge, resp.ContentLength, c.cfg.MaxBodyBytes)
	}

	reader := io.Reader(resp.Body)
	if c.cfg.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if c.cfg.MaxBodyBytes > 0 && int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: body larger than %d bytes", ErrTooLarge, c.cfg.MaxBodyBytes)
	}

	return &Response{
		Request:    req,
		Headers:    resp.Header,
		Body:       body,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now(),
	}, nil
}

func (c *NetHTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
