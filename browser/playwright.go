package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

// playwrightDriver drives a headless Chromium through playwright-go.
type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywrightDriver launches a Chromium instance. Close must be
// called to release the browser and the playwright runtime.
func NewPlaywrightDriver(headless bool, slowMo float64) (Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		SlowMo:   playwright.Float(slowMo),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &playwrightDriver{pw: pw, browser: browser}, nil
}

func (d *playwrightDriver) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.StatePath != "" {
		if _, err := os.Stat(opts.StatePath); err == nil {
			ctxOpts.StorageStatePath = playwright.String(opts.StatePath)
		}
	}

	browserCtx, err := d.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}

	return &playwrightSession{ctx: browserCtx, page: page}, nil
}

func (d *playwrightDriver) Close() error {
	if err := d.browser.Close(); err != nil {
		d.pw.Stop()
		return fmt.Errorf("close browser: %w", err)
	}
	return d.pw.Stop()
}

type playwrightSession struct {
	ctx  playwright.BrowserContext
	page playwright.Page
}

func (s *playwrightSession) Navigate(_ context.Context, url string, timeout time.Duration) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (s *playwrightSession) URL() string {
	return s.page.URL()
}

func (s *playwrightSession) IsVisible(_ context.Context, selector string, timeout time.Duration) bool {
	err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err == nil
}

func (s *playwrightSession) Click(_ context.Context, selector string) error {
	if err := s.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) Fill(_ context.Context, selector, text string) error {
	loc := s.page.Locator(selector).First()
	if err := loc.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", selector, err)
	}
	if err := loc.Fill(text); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) WaitHidden(_ context.Context, selector string, timeout time.Duration) error {
	err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait hidden %s: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if match(s.page.URL()) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for URL change, still at %s", s.page.URL())
		}
		select {
		case <-time.After(250 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *playwrightSession) SaveState(path string) error {
	if _, err := s.ctx.StorageState(path); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

func (s *playwrightSession) Close() error {
	return s.ctx.Close()
}
