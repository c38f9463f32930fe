package handler

import (
	"context"
	"fmt"

	financebladi "financebladi"
	"financebladi/curve"
	m "financebladi/internal/model"
)

/***************************** Report ***********************************/

type SnapshotRetrieverMock struct {
	snap *m.Snapshot
	err  error
}

func (mock SnapshotRetrieverMock) Latest() (*m.Snapshot, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	return mock.snap, nil
}

type RowRetrieverMock struct {
	rows []m.Row
	err  error
}

func (mock RowRetrieverMock) Rows(n int) ([]m.Row, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	if n < len(mock.rows) {
		return mock.rows[:n], nil
	}
	return mock.rows, nil
}

type RecordRetrieverMock struct {
	recs  []m.DailyRecord
	err   error
	asked int
}

func (mock *RecordRetrieverMock) RetrieveRecentRecords(ctx context.Context, n int) ([]m.DailyRecord, error) {
	mock.asked = n
	if mock.err != nil {
		return nil, mock.err
	}
	return mock.recs, nil
}

type CurveGetterMock struct {
	obs []curve.Observation
	ref string
	err error
}

func (mock CurveGetterMock) Curve(ctx context.Context) (*curve.Curve, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	ref, err := curve.ParseDate(mock.ref)
	if err != nil {
		return nil, err
	}
	return curve.New(ref, mock.obs)
}

/***************************** Event ***********************************/

type EventMock struct {
	events   []*financebladi.EnrolledEvent
	launched []uint
}

func (mock *EventMock) Events() []*financebladi.EnrolledEvent {
	return mock.events
}

func (mock *EventMock) LaunchEvent(id uint) error {
	for _, e := range mock.events {
		if e.Id == id {
			if !e.IsActive {
				return fmt.Errorf("%w. Id : %d", financebladi.ErrInactiveEvent, id)
			}
			mock.launched = append(mock.launched, id)
			return nil
		}
	}
	return fmt.Errorf("%w. Id : %d", financebladi.ErrUnknownEvent, id)
}

func (mock *EventMock) SetEventStatus(id uint, active bool) error {
	for _, e := range mock.events {
		if e.Id == id {
			e.IsActive = active
			return nil
		}
	}
	return fmt.Errorf("%w. Id : %d", financebladi.ErrUnknownEvent, id)
}
