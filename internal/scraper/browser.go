package scraper

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders pages in a headless browser. Slow and resource-heavy,
// but it sees dynamic content the static fetcher misses and passes most
// bot-detection checks.
type BrowserFetcher struct {
	browser *rod.Browser
}

// NewBrowserFetcher launches a headless browser. bin may be empty to
// auto-detect a local Chromium.
func NewBrowserFetcher(bin string) (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)
	if bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, err
	}

	return &BrowserFetcher{browser: browser}, nil
}

// Close shuts the browser down
func (f *BrowserFetcher) Close() error {
	return f.browser.Close()
}

// Fetch navigates to the URL and returns the rendered DOM
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*RawPage, error) {
	page, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: url, Err: err}
	}
	defer page.Close()

	page = page.Context(ctx)

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: acceptLanguage,
	})
	if err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: url, Err: err}
	}

	if err := page.Navigate(url); err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: url, Err: err}
	}
	if err := page.WaitLoad(); err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: url, Err: err}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: url, Err: err}
	}

	if isBlockedPage(html) {
		return nil, &FetchError{Kind: FetchBlocked, URL: url}
	}

	return &RawPage{
		URL:       url,
		HTML:      html,
		FetchedAt: time.Now(),
	}, nil
}
