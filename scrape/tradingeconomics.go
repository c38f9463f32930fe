package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	m "financebladi/internal/model"
)

var (
	// 표의 Actual, Previous 두 칸
	actualPreviousCells = regexp.MustCompile(`<td>(\d+\.?\d*)</td>\s*<td>(\d+\.?\d*)</td>`)
	embeddedPrice       = regexp.MustCompile(`"price":"([\d.]+)"`)
)

// DAP 비료 가격 (USD/T)
func (s *Scraper) PhosphateDAP(ctx context.Context) (*m.CommodityQuote, error) {
	s.lg.Info().Msg("Starting PhosphateDAP")

	body, err := s.fetch(ctx, m.TradingEconomics, s.urls.Phosphate)
	if err != nil {
		return nil, err
	}

	var text string
	if match := actualPreviousCells.FindSubmatch(body); match != nil {
		text = string(match[1])
	} else if match := embeddedPrice.FindSubmatch(body); match != nil {
		text = string(match[1])
	} else {
		return nil, fmt.Errorf("%w: phosphate price", ErrNotFound)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid phosphate price %q: %w", text, err)
	}

	s.lg.Info().Msgf("Phosphate DAP: %.2f USD/T", v)
	return &m.CommodityQuote{Value: v, Source: "TradingEconomics"}, nil
}
