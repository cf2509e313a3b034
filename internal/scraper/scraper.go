package scraper

import (
	"context"
	"errors"

	"pricewatch/internal/models"

	"github.com/rs/zerolog"
)

// Scraper composes the fetch strategies with extraction. Policy: try the
// cheap static fetch first; a blocked response or a missing required field
// escalates once to headless rendering before failing.
type Scraper struct {
	static    Fetcher
	browser   Fetcher // nil when headless rendering is disabled
	extractor *Extractor
	log       zerolog.Logger
}

// New creates a scraper. browser may be nil, in which case there is no
// rendering fallback.
func New(static, browser Fetcher, extractor *Extractor, log zerolog.Logger) *Scraper {
	return &Scraper{
		static:    static,
		browser:   browser,
		extractor: extractor,
		log:       log,
	}
}

// Snapshot fetches and extracts the product page at url
func (s *Scraper) Snapshot(ctx context.Context, url string) (*models.ProductSnapshot, error) {
	page, err := s.static.Fetch(ctx, url)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) && fe.Kind == FetchBlocked && s.browser != nil {
			s.log.Debug().Str("url", url).Msg("static fetch blocked, rendering in browser")
			return s.renderAndExtract(ctx, url)
		}
		return nil, err
	}

	snap, err := s.extractor.Extract(page)
	if err == nil {
		return snap, nil
	}

	var xe *ExtractionError
	if errors.As(err, &xe) && s.browser != nil {
		// Missing fields in the static HTML usually mean the pricing widget
		// is rendered client-side
		s.log.Debug().Str("url", url).Str("field", xe.Field).Msg("field absent in static HTML, rendering in browser")
		return s.renderAndExtract(ctx, url)
	}
	return nil, err
}

func (s *Scraper) renderAndExtract(ctx context.Context, url string) (*models.ProductSnapshot, error) {
	page, err := s.browser.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(page)
}
