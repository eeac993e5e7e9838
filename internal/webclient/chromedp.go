package webclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ladle-dev/ladle/internal/logging"
)

// ChromedpClient renders pages in headless Chrome before snapshotting the
// DOM. Only needed for recipe sites that assemble their content with
// client-side JavaScript; everything else should use the nethttp backend.
type ChromedpClient struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	cfg         Config
	logger      logging.Logger
}

// NewChromedpClient starts a shared browser allocator. Callers must Close it.
func NewChromedpClient(cfg Config, logger logging.Logger, opts ...chromedp.ExecAllocatorOption) (*ChromedpClient, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	if cfg.RenderIdleAfter <= 0 {
		cfg.RenderIdleAfter = DefaultConfig().RenderIdleAfter
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], opts...)
	if cfg.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &ChromedpClient{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		cfg:         cfg,
		logger:      logger.With(logging.Field{Key: "backend", Value: BackendChromedp}),
	}, nil
}

// waitNetworkIdle signals once no network request has been in flight for
// idleAfter. Rendering-heavy pages fire requests long after load, so plain
// WaitReady is not enough.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idle := make(chan struct{})
	var active int32
	var timerMu sync.Mutex
	var timer *time.Timer
	var once sync.Once

	restartTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&active) == 0 {
				once.Do(func() { close(idle) })
			}
		})
	}
	restartTimer()

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&active, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&active, -1) <= 0 {
				restartTimer()
			}
		}
	})

	return idle
}

// Do navigates to req.URL, waits for network idle and returns the rendered
// outer HTML. Only GET makes sense for this backend.
func (c *ChromedpClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx)
	defer tabCancel()

	// Tie the tab's lifetime to the caller's deadline.
	go func() {
		<-ctx.Done()
		tabCancel()
	}()

	idle := waitNetworkIdle(tabCtx, c.cfg.RenderIdleAfter)

	if err := chromedp.Run(tabCtx, chromedp.Navigate(req.URL)); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", req.URL, err)
	}

	select {
	case <-idle:
	case <-ctx.Done():
		return nil, fmt.Errorf("render %s: %w", req.URL, ctx.Err())
	}

	var rendered string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &rendered)); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", req.URL, err)
	}

	if c.cfg.MaxBodyBytes > 0 && int64(len(rendered)) > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: rendered DOM larger than %d bytes", ErrTooLarge, c.cfg.MaxBodyBytes)
	}

	c.logger.Debug("rendered page",
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "bytes", Value: len(rendered)})

	// CDP does not surface the HTTP status of the main document cheaply;
	// a successful render is reported as 200.
	return &Response{
		Request:    req,
		Headers:    http.Header{},
		Body:       []byte(rendered),
		StatusCode: http.StatusOK,
		FetchedAt:  time.Now(),
	}, nil
}

func (c *ChromedpClient) Close() error {
	c.allocCancel()
	return nil
}
