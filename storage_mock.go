package financebladi

import (
	"context"
	"sync"

	m "financebladi/internal/model"
)

type StorageMock struct {
	mu      sync.Mutex
	records []*m.DailyRecord
	events  map[uint]bool
	err     error
}

func (s *StorageMock) SaveDailyRecord(ctx context.Context, rec *m.DailyRecord) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *StorageMock) RetreiveEventIsActive(eventId uint) bool {
	active, ok := s.events[eventId]
	return !ok || active
}

func (s *StorageMock) UpdateEventIsActive(eventId uint, isActive bool) error {
	if s.err != nil {
		return s.err
	}
	if s.events == nil {
		s.events = make(map[uint]bool)
	}
	s.events[eventId] = isActive
	return nil
}

type SheetMock struct {
	rows []m.Row
	err  error
}

func (s *SheetMock) Export(ctx context.Context, row m.Row) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	return nil
}

type LocalMock struct {
	snaps []*m.Snapshot
	err   error
}

func (l *LocalMock) Save(snap *m.Snapshot, row m.Row) error {
	if l.err != nil {
		return l.err
	}
	l.snaps = append(l.snaps, snap)
	return nil
}
