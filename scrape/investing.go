package scrape

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	m "financebladi/internal/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const (
	priceCssPath    = `div[data-test="instrument-price-last"]`
	altPriceCssPath = "span.text-2xl"
)

// MASI 지수. 가격 텍스트는 사이트 표기 그대로 (예: "13,245.67")
func (s *Scraper) Masi(ctx context.Context) (*m.IndexQuote, error) {
	s.lg.Info().Msg("Starting Masi")

	price, err := s.investingPrice(ctx, m.InvestingMasi, s.urls.Masi)
	if err != nil {
		return nil, err
	}

	s.lg.Info().Msgf("MASI: %s", price)
	return &m.IndexQuote{Value: price, Source: "Investing.com", URL: s.urls.Masi}, nil
}

// investing.com 종목 페이지 가격. 정적 요청이 막히면 headless 로 재시도
func (s *Scraper) investingPrice(ctx context.Context, src m.Source, url string) (string, error) {

	price, err := s.staticPrice(ctx, src, url)
	if err == nil || !s.headless {
		return price, err
	}

	s.lg.Warn().Err(err).Str("url", url).Msg("static fetch failed. trying headless browser")
	doc, err := crawlSpaBodyAvoidingCloudflare(ctx, url)
	if err != nil {
		return "", err
	}
	if price, ok := extractPrice(doc); ok {
		return price, nil
	}
	return "", fmt.Errorf("%w: price in %s", ErrNotFound, url)
}

func (s *Scraper) staticPrice(ctx context.Context, src m.Source, url string) (string, error) {

	body, err := s.fetch(ctx, src, url)
	if err != nil {
		return "", err
	}
	doc, err := document(body)
	if err != nil {
		return "", err
	}
	if price, ok := extractPrice(doc); ok {
		return price, nil
	}
	return "", fmt.Errorf("%w: price in %s", ErrNotFound, url)
}

func extractPrice(doc *goquery.Document) (string, bool) {

	if price := firstText(doc, priceCssPath); price != "" {
		return price, true
	}

	for _, text := range selectAllMatched(doc, altPriceCssPath) {
		if strings.Contains(text, "MAD") || strings.IndexFunc(text, unicode.IsDigit) >= 0 {
			return text, true
		}
	}
	return "", false
}

// "1,234.5 $" 같은 표기를 숫자로
func parsePrice(text string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == ',', r == '$', r == '€', r == '£', unicode.IsSpace(r):
			return -1
		}
		return r
	}, text)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", text, err)
	}
	v := d.InexactFloat64()
	if !finite(v) {
		return 0, fmt.Errorf("price out of range %q", text)
	}
	return v, nil
}
