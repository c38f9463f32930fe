package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"financebladi/curve"
	m "financebladi/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// 세미콜론 구분 CSV 한 줄을 칸으로 분리. 줄 전체 혹은 칸을 감싼 따옴표는 제거
func splitLine(line string) []string {
	line = strings.Trim(strings.TrimSpace(line), `"`)
	parts := strings.Split(line, ";")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return parts
}

func csvLines(body []byte) []string {
	body = bytes.TrimPrefix(body, utf8BOM)
	text := strings.TrimSpace(strings.ReplaceAll(string(body), "\r\n", "\n"))
	return strings.Split(text, "\n")
}

/*
BKAM 기준 환율 CSV 에서 EUR/MAD, USD/MAD 추출.
둘 중 하나라도 찾지 못하면 찾은 값까지 채운 결과와 ErrNotFound 를 함께 반환한다.
*/
func (s *Scraper) ForexRates(ctx context.Context) (*m.ForexRates, error) {
	s.lg.Info().Msg("Starting ForexRates")

	body, err := s.fetch(ctx, m.BkamForex, s.urls.ForexCSV)
	if err != nil {
		return nil, err
	}

	rates := &m.ForexRates{}
	for _, line := range csvLines(body) {
		parts := splitLine(line)
		if len(parts) < 2 || parts[0] == "" {
			continue
		}

		label := strings.ToUpper(parts[0])
		var target *float64
		switch {
		case strings.Contains(label, "EURO") && rates.EURMAD == 0:
			target = &rates.EURMAD
		case strings.Contains(label, "DOLLAR U.S.A.") && rates.USDMAD == 0:
			target = &rates.USDMAD
		default:
			continue
		}

		v, err := curve.ParseRate(parts[1])
		if err != nil {
			s.lg.Warn().Err(err).Str("line", line).Msg("forex value parse failed")
			continue
		}
		*target = v
	}

	switch {
	case rates.EURMAD == 0 && rates.USDMAD == 0:
		return rates, fmt.Errorf("%w: EUR/MAD, USD/MAD", ErrNotFound)
	case rates.EURMAD == 0:
		return rates, fmt.Errorf("%w: EUR/MAD", ErrNotFound)
	case rates.USDMAD == 0:
		return rates, fmt.Errorf("%w: USD/MAD", ErrNotFound)
	}

	s.lg.Info().Msgf("EUR/MAD %.4f USD/MAD %.4f", rates.EURMAD, rates.USDMAD)
	return rates, nil
}

// 국채 기준금리 페이지에서 CSV 링크를 찾아 만기일/금리 행을 반환
func (s *Scraper) TreasuryObservations(ctx context.Context) ([]curve.Observation, error) {
	s.lg.Info().Msg("Starting TreasuryObservations")

	csvURL, err := s.treasuryCSVLink(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.fetch(ctx, m.BkamTreasury, csvURL)
	if err != nil {
		return nil, err
	}

	obs := parseTreasuryCSV(body)
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no treasury rows in %s", ErrNotFound, csvURL)
	}

	s.lg.Info().Msgf("Retrieved %d treasury rows", len(obs))
	return obs, nil
}

func (s *Scraper) treasuryCSVLink(ctx context.Context) (string, error) {

	body, err := s.fetch(ctx, m.BkamTreasury, s.urls.TreasuryPage)
	if err != nil {
		return "", err
	}

	doc, err := document(body)
	if err != nil {
		return "", err
	}

	href, ok := doc.Find(`a[href*="/export/blockcsv/"]`).First().Attr("href")
	if !ok {
		return "", fmt.Errorf("%w: treasury csv link", ErrNotFound)
	}

	base, err := url.Parse(s.urls.TreasuryPage)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// 헤더 두 줄과 Total 행은 건너뜀. 0번 칸 만기일, 2번 칸 금리
func parseTreasuryCSV(body []byte) []curve.Observation {

	lines := csvLines(body)
	if len(lines) <= 2 {
		return nil
	}

	obs := make([]curve.Observation, 0, len(lines)-2)
	for _, line := range lines[2:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(strings.Trim(line, `"`), "Total") {
			continue
		}

		parts := splitLine(line)
		if len(parts) < 4 {
			continue
		}
		obs = append(obs, curve.Observation{DateText: parts[0], RateText: parts[2]})
	}
	return obs
}
