package handler

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"slices"
	"strconv"
	"time"

	"financebladi/curve"
	"financebladi/export"
	m "financebladi/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

//go:embed templates/dashboard.html
var dashboardHTML string

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

type ReportHandler struct {
	sr SnapshotRetriever
	rr RowRetriever
	hr RecordRetriever // nil 이면 로컬 백업에서 이력 조회
	cg CurveGetter
	lg zerolog.Logger
}

func NewReportHandler(sr SnapshotRetriever, rr RowRetriever, hr RecordRetriever, cg CurveGetter) *ReportHandler {
	return &ReportHandler{
		sr: sr,
		rr: rr,
		hr: hr,
		cg: cg,
		lg: zerolog.New(os.Stdout).With().Str("Module", "ReportHandler").Timestamp().Logger(),
	}
}

func (h *ReportHandler) InitRoute(app *fiber.App) {

	app.Get("/", h.Dashboard)

	router := app.Group("/api")
	router.Get("/latest", h.Latest)
	router.Get("/history", h.History)
	router.Get("/curve", h.Curve)
}

func (h *ReportHandler) latest() (*m.Snapshot, error) {
	snap, err := h.sr.Latest()
	if errors.Is(err, export.ErrNoBackup) {
		return nil, fiber.NewError(fiber.StatusNotFound, "No data")
	}
	if err != nil {
		return nil, fmt.Errorf("최근 백업 조회 시 오류 발생. %w", err)
	}
	return snap, nil
}

func (h *ReportHandler) Latest(c *fiber.Ctx) error {

	snap, err := h.latest()
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(snap)
}

func (h *ReportHandler) History(c *fiber.Ctx) error {

	param := HistoryParam{Days: 7}
	if err := c.QueryParser(&param); err != nil {
		return fmt.Errorf("파라미터 QueryParse 시 오류 발생. %w", err)
	}
	if err := validCheck(&param); err != nil {
		return fmt.Errorf("파라미터 유효성 검사 시 오류 발생. %w", err)
	}

	resp := HistoryResponse{Columns: m.Columns}

	if h.hr != nil {
		recs, err := h.hr.RetrieveRecentRecords(c.UserContext(), param.Days)
		if err == nil {
			resp.Source = "db"
			resp.Rows = make([]HistoryRow, 0, len(recs))
			for _, rec := range recs {
				var cells []string
				if err := json.Unmarshal(rec.Cells, &cells); err != nil {
					h.lg.Warn().Err(err).Msg("invalid cells in history record")
				}
				resp.Rows = append(resp.Rows, HistoryRow{
					Date:     time.Time(rec.Date).Format(time.DateOnly),
					Degraded: rec.Degraded,
					Cells:    cells,
				})
			}
			return c.Status(fiber.StatusOK).JSON(resp)
		}
		h.lg.Warn().Err(err).Msg("history db unavailable. reading local backups")
	}

	rows, err := h.rr.Rows(param.Days)
	if errors.Is(err, export.ErrNoBackup) {
		return fiber.NewError(fiber.StatusNotFound, "No data")
	}
	if err != nil {
		return fmt.Errorf("로컬 이력 조회 시 오류 발생. %w", err)
	}

	resp.Source = "local"
	resp.Rows = make([]HistoryRow, 0, len(rows))
	for _, row := range rows {
		date := row[0]
		if len(date) > 10 {
			date = date[:10]
		}
		resp.Rows = append(resp.Rows, HistoryRow{Date: date, Cells: row})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// 기본은 최근 스냅샷의 곡선. live=true 면 BKAM 에서 새로 조회
func (h *ReportHandler) Curve(c *fiber.Ctx) error {

	var param CurveParam
	if err := c.QueryParser(&param); err != nil {
		return fmt.Errorf("파라미터 QueryParse 시 오류 발생. %w", err)
	}

	if param.Live {
		cv, err := h.cg.Curve(c.UserContext())
		if err != nil && !errors.Is(err, curve.ErrEmptyCurve) {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.Status(fiber.StatusOK).JSON(curveResponse(cv))
	}

	snap, err := h.latest()
	if err != nil {
		return err
	}
	if snap.Treasury == nil {
		return fiber.NewError(fiber.StatusNotFound, "No treasury data")
	}

	tr := snap.Treasury
	resp := CurveResponse{
		Reference: tr.Reference.String(),
		Source:    "snapshot",
		Points:    curvePoints(tr.Points),
		Rates:     tr.Rates,
		Values:    tr.Values,
		Fallback:  tr.Fallback,
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func curveResponse(cv *curve.Curve) CurveResponse {

	rates := curve.Standard(cv)
	values, degraded := rates.Values()

	resp := CurveResponse{
		Source:   "live",
		Points:   curvePoints(cv.Points()),
		Rates:    rates,
		Values:   values,
		Fallback: degraded,
	}
	if cv != nil {
		resp.Reference = cv.Reference().String()
	}
	return resp
}

func curvePoints(points []curve.Point) []CurvePoint {
	out := make([]CurvePoint, 0, len(points))
	for _, p := range points {
		out = append(out, CurvePoint{
			MaturityDate: p.MaturityDate.String(),
			Days:         p.DaysToMaturity,
			Years:        p.YearsToMaturity(),
			Rate:         p.Rate,
		})
	}
	return out
}

type dashboardData struct {
	LastUpdated string
	Degraded    bool
	Forex       *m.ForexRates
	Reference   string
	Tenors      []tenorView
	Masi        string
	Phosphate   string
	Markets     []quoteView
	Errors      map[string]string
}

type tenorView struct {
	Label  string
	Value  float64
	Method string
}

type quoteView struct {
	Symbol string
	Value  string
	Source string
}

func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {

	snap, err := h.sr.Latest()
	if errors.Is(err, export.ErrNoBackup) {
		return c.Status(fiber.StatusOK).SendString("No data found")
	}
	if err != nil {
		return fmt.Errorf("최근 백업 조회 시 오류 발생. %w", err)
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, dashboardView(snap)); err != nil {
		return fmt.Errorf("dashboard 렌더링 시 오류 발생. %w", err)
	}

	c.Type("html", "utf-8")
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

func dashboardView(snap *m.Snapshot) dashboardData {

	data := dashboardData{
		LastUpdated: snap.CollectedAt.Format("2006-01-02 15:04:05"),
		Degraded:    snap.Degraded,
		Forex:       &m.ForexRates{},
		Errors:      snap.Errors,
	}
	if snap.Forex != nil {
		data.Forex = snap.Forex
	}

	if tr := snap.Treasury; tr != nil {
		data.Reference = tr.Reference.String()
		for _, t := range curve.StandardTenors {
			data.Tenors = append(data.Tenors, tenorView{
				Label:  t.Label,
				Value:  tr.Values[t.Label],
				Method: tr.Rates[t.Label].Method.String(),
			})
		}
	}

	if snap.Masi != nil {
		data.Masi = snap.Masi.Value
	}
	if snap.Phosphate != nil {
		data.Phosphate = strconv.FormatFloat(snap.Phosphate.Value, 'f', -1, 64)
	}

	if mk := snap.Markets; mk != nil {
		symbols := make([]string, 0, len(mk.Values))
		for s := range mk.Values {
			symbols = append(symbols, s)
		}
		slices.Sort(symbols)
		for _, s := range symbols {
			data.Markets = append(data.Markets, quoteView{
				Symbol: s,
				Value:  strconv.FormatFloat(mk.Values[s], 'f', -1, 64),
				Source: mk.Sources[s],
			})
		}
	}
	return data
}
