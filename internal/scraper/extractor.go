package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"pricewatch/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Fields an extraction can fail on
const (
	FieldPrice = "price"
	FieldName  = "name"
)

// ExtractionError means a required field was absent or unparsable in the page.
// It usually signals markup drift or a wrong fetch strategy, not a transient
// failure, so there is no retry logic here.
type ExtractionError struct {
	Field string
	URL   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: missing field %q", e.URL, e.Field)
}

// SelectorConfig holds the CSS selector sets used to locate product fields.
// Markup changes on the target site are a config update, not a code change.
type SelectorConfig struct {
	Price []string
	Name  []string
}

// DefaultSelectors returns the selector sets for Amazon product pages
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Price: []string{
			"#priceblock_ourprice",
			"#priceblock_dealprice",
			"#corePrice_feature_div .a-offscreen",
			".a-price .a-offscreen",
			"meta[property='product:price:amount']",
		},
		Name: []string{
			"#productTitle",
			"h1#title",
			"h1",
		},
	}
}

// Extractor parses a fetched page into a ProductSnapshot
type Extractor struct {
	selectors SelectorConfig
}

// NewExtractor creates an extractor with the given selector sets
func NewExtractor(selectors SelectorConfig) *Extractor {
	return &Extractor{selectors: selectors}
}

// Extract locates the price and name elements and normalizes them
func (e *Extractor) Extract(page *RawPage) (*models.ProductSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page.URL, err)
	}

	priceText := firstMatch(doc, e.selectors.Price)
	if priceText == "" {
		return nil, &ExtractionError{Field: FieldPrice, URL: page.URL}
	}
	price, err := parsePrice(priceText)
	if err != nil {
		return nil, &ExtractionError{Field: FieldPrice, URL: page.URL}
	}

	name := normalizeName(firstMatch(doc, e.selectors.Name))
	if name == "" {
		return nil, &ExtractionError{Field: FieldName, URL: page.URL}
	}

	return &models.ProductSnapshot{
		Name:      name,
		Price:     price,
		FetchedAt: page.FetchedAt,
	}, nil
}

// firstMatch returns the first non-empty text (or content attribute) found
// across the selector set
func firstMatch(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			text = strings.TrimSpace(sel.AttrOr("content", ""))
		}
		if text != "" {
			return text
		}
	}
	return ""
}

var priceTokenRe = regexp.MustCompile(`[0-9][0-9.,]*`)

// parsePrice strips currency symbols, non-breaking spaces and thousands
// separators and parses the remaining token as a decimal. Both "1,234.56"
// and "1.234,56" conventions are handled.
func parsePrice(text string) (decimal.Decimal, error) {
	text = strings.ReplaceAll(text, " ", " ")

	token := priceTokenRe.FindString(text)
	if token == "" {
		return decimal.Zero, fmt.Errorf("no numeric token in %q", text)
	}
	token = strings.Trim(token, ".,")

	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.234,56
			token = strings.ReplaceAll(token, ".", "")
			token = strings.Replace(token, ",", ".", 1)
		} else {
			// 1,234.56
			token = strings.ReplaceAll(token, ",", "")
		}
	case lastComma >= 0:
		token = normalizeSingleSeparator(token, ",")
	case lastDot >= 0:
		token = normalizeSingleSeparator(token, ".")
	}

	return decimal.NewFromString(token)
}

// normalizeSingleSeparator resolves a token that uses only one separator
// character: groups of three digits mean thousands, anything else means a
// decimal mark.
func normalizeSingleSeparator(token, sep string) string {
	last := strings.LastIndex(token, sep)
	if strings.Count(token, sep) > 1 || len(token)-last-1 == 3 {
		// 1,234,567 or 1.234
		return strings.ReplaceAll(token, sep, "")
	}
	head := strings.ReplaceAll(token[:last], sep, "")
	return head + "." + token[last+1:]
}

// normalizeName trims the extracted title and drops anything outside the
// printable ASCII range so downstream storage and SMS transport never choke
// on exotic characters
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, " ", " ")
	var b strings.Builder
	for _, r := range name {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
