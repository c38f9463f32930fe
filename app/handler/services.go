package handler

import (
	"context"

	financebladi "financebladi"
	"financebladi/curve"
	m "financebladi/internal/model"
)

type SnapshotRetriever interface {
	Latest() (*m.Snapshot, error)
}

type RowRetriever interface {
	Rows(n int) ([]m.Row, error)
}

type RecordRetriever interface {
	RetrieveRecentRecords(ctx context.Context, n int) ([]m.DailyRecord, error)
}

type CurveGetter interface {
	Curve(ctx context.Context) (*curve.Curve, error)
}

type EventRetriever interface {
	Events() []*financebladi.EnrolledEvent
}

type EventLauncher interface {
	LaunchEvent(id uint) error
}

type EventStatusChanger interface {
	SetEventStatus(id uint, active bool) error
}
