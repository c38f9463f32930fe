package db

import (
	"context"
	"errors"
	"time"

	m "financebladi/internal/model"

	"cloud.google.com/go/civil"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 같은 날짜 행이 있으면 갱신
func (s *Storage) SaveDailyRecord(ctx context.Context, rec *m.DailyRecord) error {
	if s.db == nil {
		return ErrNoDatabase
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"eur_mad", "usd_mad", "bt2y", "bt5y", "bt10y", "degraded", "cells", "snapshot", "updated_at"}),
	}).Create(rec)
	if result.Error != nil {
		return result.Error
	}

	s.lg.Info().Msgf("Saved daily record for %s", time.Time(rec.Date).Format(time.DateOnly))
	return nil
}

func (s *Storage) RetrieveDailyRecord(ctx context.Context, date civil.Date) (*m.DailyRecord, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}

	var rec m.DailyRecord
	result := s.db.WithContext(ctx).Where("date = ?", datatypes.Date(date.In(time.Local))).First(&rec)
	if result.Error != nil {
		return nil, result.Error
	}

	return &rec, nil
}

// 최근 n 일, 최신순
func (s *Storage) RetrieveRecentRecords(ctx context.Context, n int) ([]m.DailyRecord, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}

	var recs []m.DailyRecord
	result := s.db.WithContext(ctx).Order("date desc").Limit(n).Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}

	s.lg.Info().Msgf("Retrieved %d daily records", len(recs))
	return recs, nil
}

// 저장소가 없거나 처음 보는 이벤트는 활성으로 간주
func (s *Storage) RetreiveEventIsActive(eventId uint) bool {
	if s.db == nil {
		return true
	}

	var event m.Event
	result := s.db.Where("id", eventId).First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			s.db.Create(&m.Event{ID: eventId, IsActive: true})
			s.lg.Info().Msgf("Created new event with ID %d and set as active", eventId)
			return true
		} else {
			s.lg.Info().Msgf("Failed to retrieve event with ID %d", eventId)
			return false
		}
	}

	s.lg.Info().Msgf("Retrieved event with ID %d, active status: %t", eventId, event.IsActive)
	return event.IsActive
}

func (s *Storage) UpdateEventIsActive(eventId uint, isActive bool) error {
	if s.db == nil {
		return nil
	}

	result := s.db.Select("is_active").Updates(m.Event{ID: eventId, IsActive: isActive})
	if result.Error != nil {
		return result.Error
	}

	s.lg.Info().Msgf("Updated event with ID %d to active status: %t", eventId, isActive)
	return nil
}
