package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(html string) *RawPage {
	return &RawPage{URL: "https://shop.example/item", HTML: html, FetchedAt: time.Now()}
}

const productHTML = `
<html><body>
<h1 id="productTitle">  Widget Deluxe 3000 — Limited Edition  </h1>
<span id="priceblock_ourprice">$1,234.56</span>
</body></html>`

func TestExtract_PriceAndName(t *testing.T) {
	e := NewExtractor(DefaultSelectors())

	snap, err := e.Extract(page(productHTML))
	require.NoError(t, err)

	assert.Equal(t, "1234.56", snap.Price.String())
	assert.Equal(t, "Widget Deluxe 3000 Limited Edition", snap.Name)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestExtract_MissingPrice(t *testing.T) {
	e := NewExtractor(DefaultSelectors())

	_, err := e.Extract(page(`<html><body><h1 id="productTitle">Widget</h1></body></html>`))
	require.Error(t, err)

	xe, ok := err.(*ExtractionError)
	require.True(t, ok)
	assert.Equal(t, FieldPrice, xe.Field)
}

func TestExtract_MissingName(t *testing.T) {
	e := NewExtractor(DefaultSelectors())

	_, err := e.Extract(page(`<html><body><span id="priceblock_ourprice">$9.99</span></body></html>`))
	require.Error(t, err)

	xe, ok := err.(*ExtractionError)
	require.True(t, ok)
	assert.Equal(t, FieldName, xe.Field)
}

func TestExtract_UnparsablePrice(t *testing.T) {
	e := NewExtractor(DefaultSelectors())

	_, err := e.Extract(page(`<html><body>
		<h1 id="productTitle">Widget</h1>
		<span id="priceblock_ourprice">Currently unavailable</span>
	</body></html>`))
	require.Error(t, err)

	xe, ok := err.(*ExtractionError)
	require.True(t, ok)
	assert.Equal(t, FieldPrice, xe.Field)
}

func TestExtract_MetaContentFallback(t *testing.T) {
	e := NewExtractor(DefaultSelectors())

	snap, err := e.Extract(page(`<html><head>
		<meta property="product:price:amount" content="59.90"/>
	</head><body><h1 id="productTitle">Widget</h1></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "59.9", snap.Price.String())
}

func TestExtract_CustomSelectors(t *testing.T) {
	e := NewExtractor(SelectorConfig{
		Price: []string{".price-now"},
		Name:  []string{".product-heading"},
	})

	snap, err := e.Extract(page(`<html><body>
		<div class="product-heading">Other Shop Widget</div>
		<div class="price-now">R$ 1.234,56</div>
	</body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "1234.56", snap.Price.String())
	assert.Equal(t, "Other Shop Widget", snap.Name)
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"$1,234.56", "1234.56"},
		{"$4.99", "4.99"},
		{"1.234,56", "1234.56"},
		{"4,99", "4.99"},
		{"1,234", "1234"},
		{"1.234", "1234"},
		{"1,234,567.89", "1234567.89"},
		{"R$ 2.499,00", "2499"},
		{"USD 15", "15"},
		{"  $ 89 ", "89"},
	}

	for _, tc := range cases {
		got, err := parsePrice(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got.String(), "input %q", tc.in)
	}
}

func TestParsePrice_NoNumber(t *testing.T) {
	_, err := parsePrice("out of stock")
	assert.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Cafetire 1.5L", normalizeName("  Cafetière 1.5L "))
	assert.Equal(t, "Plain Name", normalizeName("Plain   Name"))
	assert.Equal(t, "", normalizeName("❤️"))
}
