package financebladi

import (
	"context"

	"financebladi/curve"
	m "financebladi/internal/model"
)

type ScraperMock struct {
	forex     *m.ForexRates
	forexErr  error
	obs       []curve.Observation
	obsErr    error
	masi      *m.IndexQuote
	phosphate *m.CommodityQuote
	markets   *m.MarketQuotes
	err       error // forex, treasury 외 모듈 공통
}

func (s ScraperMock) ForexRates(ctx context.Context) (*m.ForexRates, error) {
	return s.forex, s.forexErr
}

func (s ScraperMock) TreasuryObservations(ctx context.Context) ([]curve.Observation, error) {
	if s.obsErr != nil {
		return nil, s.obsErr
	}
	return s.obs, nil
}

func (s ScraperMock) Masi(ctx context.Context) (*m.IndexQuote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.masi, nil
}

func (s ScraperMock) PhosphateDAP(ctx context.Context) (*m.CommodityQuote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.phosphate, nil
}

func (s ScraperMock) MarketQuotes(ctx context.Context) (*m.MarketQuotes, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.markets, nil
}
