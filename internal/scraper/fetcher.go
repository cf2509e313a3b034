package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// FetchErrorKind classifies a failed page fetch
type FetchErrorKind string

const (
	// FetchNetwork covers timeouts, DNS failures and refused connections; retryable
	FetchNetwork FetchErrorKind = "network"
	// FetchHTTPStatus covers non-2xx responses
	FetchHTTPStatus FetchErrorKind = "http_status"
	// FetchBlocked means a bot-detection interstitial was served instead of the product page
	FetchBlocked FetchErrorKind = "blocked"
)

// FetchError describes why a fetch failed
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RawPage is the result of a successful fetch, ready for extraction
type RawPage struct {
	URL        string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
}

// Fetcher retrieves page content for a product URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*RawPage, error)
}

// Headers sent with every request; a realistic browser identity lowers the block rate
const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:84.0) Gecko/20100101 Firefox/84.0"
	acceptLanguage = "en-US,en;q=0.5"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Phrases that identify a bot-detection page even when it comes back as 200
var blockedMarkers = []string{
	"Robot Check",
	"Type the characters you see in this image",
	"api-services-support@amazon.com",
	"/errors/validateCaptcha",
	"Pardon Our Interruption",
}

// StaticFetcher fetches pages with a plain HTTP GET. Fast and cheap, but
// JS-rendered pricing widgets may be absent from what it returns.
type StaticFetcher struct {
	client *resty.Client
}

// NewStaticFetcher creates a static fetcher with retry on 5xx/429
func NewStaticFetcher(timeout time.Duration) *StaticFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			return r.StatusCode() >= 500 || r.StatusCode() == http.StatusTooManyRequests
		})
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", acceptHeader)
	client.SetHeader("Accept-Language", acceptLanguage)

	return &StaticFetcher{client: client}
}

// Fetch performs the GET and classifies any failure
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (*RawPage, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: url, Err: err}
	}

	body := string(resp.Body())

	if isBlockedPage(body) {
		return nil, &FetchError{Kind: FetchBlocked, URL: url, StatusCode: resp.StatusCode()}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &FetchError{Kind: FetchHTTPStatus, URL: url, StatusCode: resp.StatusCode()}
	}

	return &RawPage{
		URL:        url,
		HTML:       body,
		StatusCode: resp.StatusCode(),
		FetchedAt:  time.Now(),
	}, nil
}

func isBlockedPage(body string) bool {
	for _, marker := range blockedMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
