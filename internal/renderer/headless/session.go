// Package headless keeps one headless Chrome tab parked on the upstream page.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/vedictime/internal/metrics"
	"github.com/JakeFAU/vedictime/internal/vedictime"
)

const (
	// DefaultNavigationTimeout bounds a single navigation to the upstream page.
	DefaultNavigationTimeout = 60 * time.Second
	// DefaultUserAgent is a fixed desktop Chrome user agent.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var errNoSession = errors.New("browser session not started")

// Config controls the behavior of the headless session.
type Config struct {
	URL               string
	UserAgent         string
	NavigationTimeout time.Duration
	NoSandbox         bool
	ExecPath          string
}

// Session implements vedictime.Renderer with a single chromedp tab.
type Session struct {
	cfg    Config
	logger *zap.Logger
	meta   *responseMeta

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tab         context.Context
	ready       bool
}

// NewSession validates cfg and returns an idle session. Chrome is not started
// until the first Ensure.
func NewSession(cfg Config, logger *zap.Logger) (*Session, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("upstream url is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Session{
		cfg:    cfg,
		logger: logger,
		meta:   &responseMeta{},
	}, nil
}

// Ensure launches Chrome and navigates the tab when that has not happened yet.
// A tab whose last navigation failed is navigated again without relaunching.
func (s *Session) Ensure(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return false, nil
	}
	if s.tab == nil {
		if err := s.launch(); err != nil {
			metrics.ObserveSessionLaunch(err)
			return false, fmt.Errorf("%w: %w", vedictime.ErrSessionLaunch, err)
		}
		metrics.ObserveSessionLaunch(nil)
	}
	if err := s.navigate(ctx); err != nil {
		return false, fmt.Errorf("%w: %w", vedictime.ErrNavigation, err)
	}
	s.ready = true
	return true, nil
}

// Reload repeats the initial navigation against the existing tab.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		return fmt.Errorf("%w: %w", vedictime.ErrReload, errNoSession)
	}
	if err := s.navigate(ctx); err != nil {
		return fmt.Errorf("%w: %w", vedictime.ErrReload, err)
	}
	s.ready = true
	return nil
}

// ReadText evaluates the extraction script in whatever DOM the tab holds.
func (s *Session) ReadText(ctx context.Context) (vedictime.PageText, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		return vedictime.PageText{}, errNoSession
	}
	taskCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	var text vedictime.PageText
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(vedictime.ExtractScript, &text)); err != nil {
		return vedictime.PageText{}, fmt.Errorf("evaluate extract script: %w", err)
	}
	return text, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		return nil
	}
	err := chromedp.Cancel(s.tab)
	s.allocCancel()
	s.tab = nil
	s.allocCancel = nil
	s.ready = false
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

func (s *Session) launch() error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), s.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(s.logger.Sugar().Debugf),
		chromedp.WithErrorf(s.logger.Sugar().Debugf),
	)

	// The first Run starts the browser; its context must outlive this call, so
	// no timeout is attached here.
	if err := chromedp.Run(tabCtx, s.setupAction()); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("start browser: %w", err)
	}
	chromedp.ListenTarget(tabCtx, s.meta.captureEvent)

	s.tab = tabCtx
	s.allocCancel = func() {
		tabCancel()
		allocCancel()
	}
	s.logger.Info("browser session started", zap.Bool("no_sandbox", s.cfg.NoSandbox))
	return nil
}

func (s *Session) navigate(ctx context.Context) error {
	taskCtx, cancel := context.WithTimeout(s.tab, s.cfg.NavigationTimeout)
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	start := time.Now()
	s.meta.reset()
	err := chromedp.Run(taskCtx,
		navigateDOMReady(s.cfg.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", s.cfg.URL, err)
	}
	s.logger.Info("upstream page loaded",
		zap.String("url", s.cfg.URL),
		zap.Int("status", s.meta.status()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (s *Session) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.cfg.UserAgent),
	)
	if s.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if s.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ExecPath))
	}
	return opts
}

// navigateDOMReady issues Page.navigate without waiting for the load event;
// callers wait for the DOM they need afterwards.
func navigateDOMReady(rawURL string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var res page.NavigateReturns
		if err := cdp.Execute(ctx, page.CommandNavigate, page.Navigate(rawURL), &res); err != nil {
			return fmt.Errorf("page navigate: %w", err)
		}
		if res.ErrorText != "" {
			return fmt.Errorf("page navigate: %s", res.ErrorText)
		}
		return nil
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

type responseMeta struct {
	mu         sync.RWMutex
	statusCode int
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.mu.Unlock()
}

func (m *responseMeta) reset() {
	m.mu.Lock()
	m.statusCode = 0
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusCode
}
