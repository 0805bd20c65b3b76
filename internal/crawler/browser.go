package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/linkscout/internal/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Browser owns one headless Chrome process for rendered documents
type Browser struct {
	config config.BrowserConfig
	logger zerolog.Logger

	mutex    sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowser creates a browser manager; nothing is launched until Start
func NewBrowser(cfg config.BrowserConfig, logger zerolog.Logger) *Browser {
	return &Browser{
		config: cfg,
		logger: logger.With().Str("component", "Browser").Logger(),
	}
}

// Start launches Chrome and connects to it
func (b *Browser) Start() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.browser != nil {
		return nil
	}

	l := launcher.New().Headless(b.config.Headless)
	if b.config.ChromePath != "" {
		l = l.Bin(b.config.ChromePath)
	}
	l = l.
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("failed to connect browser: %w", err)
	}

	b.launcher = l
	b.browser = browser
	b.logger.Info().Bool("headless", b.config.Headless).Msg("Browser started")
	return nil
}

// Stop closes the browser and removes its profile
func (b *Browser) Stop() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.browser == nil {
		return
	}
	if err := b.browser.Close(); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to close browser")
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	b.browser = nil
	b.launcher = nil
	b.logger.Info().Msg("Browser stopped")
}

// Open navigates a new tab to rawURL and waits for it to load. The returned
// page stays usable until ctx is done or the page is closed.
func (b *Browser) Open(ctx context.Context, rawURL string) (*Page, error) {
	b.mutex.Lock()
	browser := b.browser
	b.mutex.Unlock()
	if browser == nil {
		return nil, fmt.Errorf("browser not started")
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if b.config.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.config.UserAgent}); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to set user agent")
		}
	}

	if err := page.Navigate(rawURL); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}

	loadTimeout := b.config.PageLoadTimeout()
	if loadTimeout <= 0 {
		loadTimeout = config.DefaultBrowserPageLoadTimeoutSecs * time.Second
	}
	if err := page.Timeout(loadTimeout).WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("page load timeout for %s: %w", rawURL, err)
	}

	if b.config.WaitAfterLoadMs > 0 {
		select {
		case <-ctx.Done():
			_ = page.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(b.config.WaitAfterLoadMs) * time.Millisecond):
		}
	}

	b.logger.Debug().Str("url", rawURL).Msg("Page loaded")
	return newPage(page, b.logger), nil
}
