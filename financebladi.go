package financebladi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"financebladi/curve"
	m "financebladi/internal/model"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// BKAM 환율을 못 가져온 날 쓰는 고정값
var FallbackForex = m.ForexRates{EURMAD: 10.82, USDMAD: 9.78}

type FinanceBladi struct {
	sc             scraper
	sheet          sheetExporter
	local          localStore
	stg            storage
	sources        []m.Source
	concurrency    int
	ch             chan<- string
	now            func() time.Time
	schedules      Schedules
	enrolledEvents []*EnrolledEvent
	eventMu        sync.RWMutex // enrolledEvents 의 IsActive 보호
	runMu          sync.Mutex
	lg             zerolog.Logger
}

type Schedules struct {
	Daily string
	Curve string
}

type FinanceBladiConfig struct {
	Scraper     scraper
	Sheet       sheetExporter // nil 이면 시트 업로드 생략
	Local       localStore    // nil 이면 로컬 백업 생략
	Storage     storage       // nil 이면 이력 저장 생략
	Sources     []m.Source    // 비어 있으면 전체
	Concurrency int
	Schedules   Schedules
	Channel     chan<- string
	Clock       func() time.Time
}

func NewFinanceBladi(conf FinanceBladiConfig) *FinanceBladi {

	f := &FinanceBladi{
		sc:          conf.Scraper,
		sheet:       conf.Sheet,
		local:       conf.Local,
		stg:         conf.Storage,
		sources:     conf.Sources,
		concurrency: conf.Concurrency,
		ch:          conf.Channel,
		now:         conf.Clock,
		schedules:   conf.Schedules,
		lg:          zerolog.New(os.Stdout).With().Str("Module", "FinanceBladi").Timestamp().Logger(),
	}
	if len(f.sources) == 0 {
		f.sources = m.Sources()
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}
	if f.now == nil {
		f.now = time.Now
	}
	f.registerEvents()
	return f
}

// 하루 실행 결과
type Report struct {
	Date          time.Time         `json:"date"`
	Snapshot      *m.Snapshot       `json:"snapshot"`
	Row           m.Row             `json:"row"`
	Collected     int               `json:"collected"`
	Modules       int               `json:"modules"`
	Degraded      bool              `json:"degraded"`
	SheetsEnabled bool              `json:"sheets_enabled"`
	Exported      bool              `json:"exported"`
	Saved         bool              `json:"saved"`
	Stored        bool              `json:"stored"`
	Failures      map[string]string `json:"failures,omitempty"`
}

// 시트 업로드 결과만 성공 여부에 반영. 시트가 꺼져 있으면 수집 성공 여부
func (r Report) Success() bool {
	if r.Collected == 0 {
		return false
	}
	return r.Exported || !r.SheetsEnabled
}

func (r Report) Summary() string {

	var sb strings.Builder
	status := "OK"
	switch {
	case !r.Success():
		status = "FAILED"
	case r.Degraded:
		status = "DEGRADED"
	}
	fmt.Fprintf(&sb, "[Finance Bladi] %s %s\n", r.Date.Format(rowDateLayout), status)

	fmt.Fprintf(&sb, "modules: %d/%d\n", r.Collected, r.Modules)
	if len(r.Row) == len(m.Columns) {
		for _, col := range []string{"EUR/MAD", "USD/MAD", "BT2Y (%)", "BT5Y (%)", "BT10Y (%)", "MASI"} {
			fmt.Fprintf(&sb, "%s: %s\n", col, r.Row.Get(col))
		}
	}
	fmt.Fprintf(&sb, "sheet: %t, backup: %t, history: %t\n", r.Exported, r.Saved, r.Stored)

	keys := make([]string, 0, len(r.Failures))
	for k := range r.Failures {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "! %s: %s\n", k, r.Failures[k])
	}
	return strings.TrimRight(sb.String(), "\n")
}

/*
활성 모듈을 동시에 수집.
모듈 실패는 Snapshot.Errors 에 남기고 계속 진행한다. 국채 곡선은 이 단계에서 만든다.
*/
func (f *FinanceBladi) Collect(ctx context.Context) *m.Snapshot {
	f.lg.Info().Msg("Starting Collect")

	snap := &m.Snapshot{
		CollectedAt: f.now(),
		Errors:      make(map[string]string),
	}

	var mu sync.Mutex
	record := func(src m.Source, err error) {
		mu.Lock()
		defer mu.Unlock()
		snap.Errors[src.String()] = err.Error()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, src := range f.sources {
		g.Go(func() error {
			f.lg.Info().Msgf("Collecting %s", src)
			if err := f.collect(gctx, src, snap, &mu); err != nil {
				f.lg.Error().Err(err).Msgf("%s failed", src)
				record(src, err)
				return nil
			}
			f.lg.Info().Msgf("%s: Success", src)
			return nil
		})
	}
	_ = g.Wait()

	f.lg.Info().Msgf("Collection complete: %d/%d modules succeeded", snap.Succeeded(), len(f.sources))
	return snap
}

func (f *FinanceBladi) collect(ctx context.Context, src m.Source, snap *m.Snapshot, mu *sync.Mutex) error {

	switch src {
	case m.BkamForex:
		fx, err := f.sc.ForexRates(ctx)
		if fx != nil && (fx.EURMAD != 0 || fx.USDMAD != 0) {
			mu.Lock()
			snap.Forex = fx
			mu.Unlock()
		}
		return err

	case m.BkamTreasury:
		tr, err := f.treasury(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.Treasury = tr
		mu.Unlock()
		return nil

	case m.InvestingMasi:
		q, err := f.sc.Masi(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.Masi = q
		mu.Unlock()
		return nil

	case m.TradingEconomics:
		q, err := f.sc.PhosphateDAP(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.Phosphate = q
		mu.Unlock()
		return nil

	case m.YahooMarkets:
		q, err := f.sc.MarketQuotes(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.Markets = q
		mu.Unlock()
		return nil
	}

	return fmt.Errorf("unknown source %s", src)
}

// 오늘 기준 국채 곡선과 2/5/10 년 금리
func (f *FinanceBladi) treasury(ctx context.Context) (*m.TreasuryRates, error) {

	// 유효 행이 없는 날은 세 금리 모두 Unavailable, 고정값으로 채운다
	c, err := f.Curve(ctx)
	if errors.Is(err, curve.ErrEmptyCurve) {
		f.lg.Warn().Err(err).Msg("empty treasury curve. using fallback rates")
	} else if err != nil {
		return nil, err
	}

	rates := curve.Standard(c)
	values, degraded := rates.Values()

	tr := &m.TreasuryRates{
		Reference: c.Reference(),
		Points:    c.Points(),
		Rates:     rates,
		Values:    values,
		Skipped:   len(c.Skipped()),
		Fallback:  degraded,
	}
	for _, t := range curve.StandardTenors {
		r := rates[t.Label]
		f.lg.Info().Msgf("%s: %.3f%% (%s, %d days)", t.Label, values[t.Label], r.Method, r.TargetDays)
	}
	return tr, nil
}

// 오늘 날짜 기준 곡선. 유효 행이 없으면 빈 곡선과 curve.ErrEmptyCurve
func (f *FinanceBladi) Curve(ctx context.Context) (*curve.Curve, error) {

	obs, err := f.sc.TreasuryObservations(ctx)
	if err != nil {
		return nil, err
	}

	c, err := curve.New(civil.DateOf(f.now()), obs)
	for _, pe := range c.Skipped() {
		f.lg.Debug().Err(pe).Msg("treasury row skipped")
	}
	return c, err
}

// 빠진 환율, 국채 금리를 고정값으로 채우고 degraded 표시
func applyFallbacks(snap *m.Snapshot) {

	if snap.Forex == nil {
		snap.Forex = &m.ForexRates{}
	}
	if snap.Forex.EURMAD == 0 {
		snap.Forex.EURMAD = FallbackForex.EURMAD
		snap.Forex.Fallback = true
	}
	if snap.Forex.USDMAD == 0 {
		snap.Forex.USDMAD = FallbackForex.USDMAD
		snap.Forex.Fallback = true
	}

	if snap.Treasury == nil {
		rates := curve.Standard(nil)
		values, _ := rates.Values()
		snap.Treasury = &m.TreasuryRates{
			Reference: civil.DateOf(snap.CollectedAt),
			Rates:     rates,
			Values:    values,
			Fallback:  true,
		}
	}

	snap.Degraded = snap.Forex.Fallback || snap.Treasury.Fallback
}

/*
하루 배치. 수집, 보정, 행 생성, 시트 업로드, 로컬 백업, 이력 저장 순서.
수집된 모듈이 하나도 없으면 내보내지 않는다.
*/
func (f *FinanceBladi) RunDaily(ctx context.Context) Report {

	f.runMu.Lock()
	defer f.runMu.Unlock()

	f.lg.Info().Msg("Starting RunDaily")

	report := Report{
		Date:          f.now(),
		Modules:       len(f.sources),
		SheetsEnabled: f.sheet != nil,
		Failures:      make(map[string]string),
	}

	snap := f.Collect(ctx)
	report.Snapshot = snap
	report.Collected = snap.Succeeded()
	for k, v := range snap.Errors {
		report.Failures[k] = v
	}

	if report.Collected == 0 {
		f.lg.Error().Msg("No data collected")
		report.Failures["collect"] = "no data collected"
		f.send(report.Summary())
		return report
	}

	applyFallbacks(snap)
	report.Degraded = snap.Degraded
	if snap.Degraded {
		f.lg.Warn().Msg("fallback values used")
	}

	report.Row = BuildRow(snap, report.Date)

	if f.sheet != nil {
		if err := f.sheet.Export(ctx, report.Row); err != nil {
			f.lg.Error().Err(err).Msg("Google Sheets export failed")
			report.Failures["sheets"] = err.Error()
		} else {
			report.Exported = true
		}
	}

	if f.local != nil {
		if err := f.local.Save(snap, report.Row); err != nil {
			f.lg.Error().Err(err).Msg("local backup failed")
			report.Failures["local"] = err.Error()
		} else {
			report.Saved = true
		}
	}

	if f.stg != nil {
		if err := f.store(ctx, snap, report); err != nil {
			f.lg.Error().Err(err).Msg("history save failed")
			report.Failures["history"] = err.Error()
		} else {
			report.Stored = true
		}
	}

	f.send(report.Summary())
	f.lg.Info().Bool("success", report.Success()).Bool("degraded", report.Degraded).Msg("RunDaily completed")
	return report
}

func (f *FinanceBladi) store(ctx context.Context, snap *m.Snapshot, report Report) error {
	rec, err := BuildRecord(snap, report.Row, report.Date)
	if err != nil {
		return err
	}
	return f.stg.SaveDailyRecord(ctx, rec)
}
