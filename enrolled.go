package financebladi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"financebladi/curve"

	"github.com/robfig/cron"
)

const (
	DailyEventId uint = 1
	CurveEventId uint = 2
)

var (
	ErrUnknownEvent  = errors.New("미존재 이벤트")
	ErrInactiveEvent = errors.New("비활성화 이벤트")
)

type EnrolledEvent struct {
	Id          uint
	Title       string
	Description string
	IsActive    bool
	Schedule    string
	Event       func(WayOfLaunch)
}

type WayOfLaunch bool

const (
	Manual WayOfLaunch = true
	Auto   WayOfLaunch = false
)

func (f *FinanceBladi) Run() *cron.Cron {
	f.lg.Info().Msg("Starting FinanceBladi Run")
	c := cron.New()

	for _, enrolled := range f.enrolledEvents {
		if enrolled.Schedule == "" {
			continue
		}
		err := c.AddFunc(enrolled.Schedule, func() {
			if f.isActive(enrolled) {
				enrolled.Event(Auto)
			}
		})
		if err != nil {
			f.lg.Error().Err(err).Uint("id", enrolled.Id).Msg("invalid schedule")
		}
	}

	c.Start()
	f.lg.Info().Msg("FinanceBladi Run completed")
	return c
}

func (f *FinanceBladi) registerEvents() {
	f.enrolledEvents = []*EnrolledEvent{
		{
			Id:          DailyEventId,
			Title:       "일일 배치",
			Description: "환율, 국채 금리, MASI, 인산 비료, 해외 시세를 수집해 시트와 로컬 백업, 이력 DB 에 기록",
			Schedule:    f.schedules.Daily,
			Event:       f.runDailyEvent,
		},
		{
			Id:          CurveEventId,
			Title:       "국채 곡선 리포트",
			Description: "BKAM 국채 기준금리 곡선의 2/5/10 년 금리를 텔레그램으로 전송",
			Schedule:    f.schedules.Curve,
			Event:       f.runCurveEvent,
		},
	}

	for _, event := range f.enrolledEvents {
		event.IsActive = true
		if f.stg != nil {
			event.IsActive = f.stg.RetreiveEventIsActive(event.Id)
		}
	}
}

// 복사본. 상태 변경은 SetEventStatus 로만
func (f *FinanceBladi) Events() []*EnrolledEvent {
	f.eventMu.RLock()
	defer f.eventMu.RUnlock()

	events := make([]*EnrolledEvent, 0, len(f.enrolledEvents))
	for _, ev := range f.enrolledEvents {
		cp := *ev
		events = append(events, &cp)
	}
	return events
}

func (f *FinanceBladi) isActive(ev *EnrolledEvent) bool {
	f.eventMu.RLock()
	defer f.eventMu.RUnlock()
	return ev.IsActive
}

func (f *FinanceBladi) SetEventStatus(id uint, active bool) error {
	f.lg.Info().Uint("id", id).Bool("active", active).Msg("Changing event status")

	f.eventMu.Lock()
	defer f.eventMu.Unlock()

	for _, ev := range f.enrolledEvents {
		if ev.Id != id {
			continue
		}
		ev.IsActive = active
		if f.stg != nil {
			if err := f.stg.UpdateEventIsActive(ev.Id, ev.IsActive); err != nil {
				return err
			}
		}
		f.lg.Info().Uint("id", id).Bool("active", active).Msg("Event status changed successfully")
		return nil
	}

	return fmt.Errorf("%w. Id : %d", ErrUnknownEvent, id)
}

func (f *FinanceBladi) LaunchEvent(id uint) error {
	f.lg.Info().Uint("id", id).Msg("Launching event")

	for _, ev := range f.enrolledEvents {
		if ev.Id != id {
			continue
		}
		// 실행 중에는 잠그지 않는다. 일일 배치는 수 분 걸릴 수 있음
		if !f.isActive(ev) {
			return fmt.Errorf("%w. Id : %d", ErrInactiveEvent, id)
		}
		ev.Event(Manual)
		f.lg.Info().Uint("id", id).Msg("Event launched successfully")
		return nil
	}

	return fmt.Errorf("%w. Id : %d", ErrUnknownEvent, id)
}

func (f *FinanceBladi) runDailyEvent(way WayOfLaunch) {
	report := f.RunDaily(context.Background())
	if !report.Success() {
		f.lg.Error().Bool("manual", bool(way)).Msg("[DailyEvent] batch failed")
	}
}

func (f *FinanceBladi) runCurveEvent(way WayOfLaunch) {
	f.lg.Info().Msg("Starting CurveEvent")

	c, err := f.Curve(context.Background())
	if err != nil {
		f.lg.Error().Err(err).Msg("[CurveEvent] Curve 조회 시, 에러 발생")
		f.send(fmt.Sprintf("[CurveEvent] Curve 조회 시, 에러 발생. %s", err))
		if !errors.Is(err, curve.ErrEmptyCurve) {
			return
		}
	}

	f.send(CurveMessage(c))
	f.lg.Info().Msg("CurveEvent completed")
}

/*
곡선 요약 메시지. 곡선이 없으면 고정 금리를 표시한다.

	[BKAM Treasury] 2025-03-01 (12 points)
	BT2Y  2.500% FirstPoint
	BT5Y  2.750% Interpolated
	BT10Y 3.100% LastPoint
*/
func CurveMessage(c *curve.Curve) string {

	var sb strings.Builder
	if c == nil || c.Len() == 0 {
		sb.WriteString("[BKAM Treasury] no curve. fallback rates\n")
	} else {
		fmt.Fprintf(&sb, "[BKAM Treasury] %s (%d points)\n", c.Reference(), c.Len())
	}

	rates := curve.Standard(c)
	values, _ := rates.Values()
	for _, t := range curve.StandardTenors {
		fmt.Fprintf(&sb, "%-5s %.3f%% %s\n", t.Label, values[t.Label], rates[t.Label].Method)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *FinanceBladi) send(msg string) {
	if f.ch != nil {
		f.ch <- msg
	}
}
