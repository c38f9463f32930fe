package financebladi

import (
	"context"

	"financebladi/curve"
	m "financebladi/internal/model"
)

type scraper interface {
	ForexRates(ctx context.Context) (*m.ForexRates, error)
	TreasuryObservations(ctx context.Context) ([]curve.Observation, error)
	Masi(ctx context.Context) (*m.IndexQuote, error)
	PhosphateDAP(ctx context.Context) (*m.CommodityQuote, error)
	MarketQuotes(ctx context.Context) (*m.MarketQuotes, error)
}

type sheetExporter interface {
	Export(ctx context.Context, row m.Row) error
}

type localStore interface {
	Save(snap *m.Snapshot, row m.Row) error
}

type storage interface {
	SaveDailyRecord(ctx context.Context, rec *m.DailyRecord) error

	RetreiveEventIsActive(eventId uint) bool
	UpdateEventIsActive(eventId uint, isActive bool) error
}
