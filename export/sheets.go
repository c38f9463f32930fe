package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	m "financebladi/internal/model"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const sheetRows = 1000

// 스프레드시트 하나에 대한 최소 연산
type sheetsAPI interface {
	SheetTitles(ctx context.Context) ([]string, error)
	AddSheet(ctx context.Context, title string, rows, cols int64) error
	Values(ctx context.Context, rng string) ([][]string, error)
	Clear(ctx context.Context, rng string) error
	Update(ctx context.Context, rng string, row []string) error
	Append(ctx context.Context, rng string, row []string) error
}

type SheetExporter struct {
	api   sheetsAPI
	title string
	lg    zerolog.Logger
}

func NewSheetExporter(ctx context.Context, spreadsheetId, title string, credentials []byte) (*SheetExporter, error) {

	if spreadsheetId == "" {
		return nil, errors.New("spreadsheet id 미존재")
	}

	srv, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return newSheetExporter(&googleSheets{srv: srv, id: spreadsheetId}, title), nil
}

func newSheetExporter(api sheetsAPI, title string) *SheetExporter {
	return &SheetExporter{
		api:   api,
		title: title,
		lg:    zerolog.New(os.Stdout).With().Str("Module", "SheetExporter").Timestamp().Logger(),
	}
}

/*
오늘 행을 시트에 기록.
A 열이 row 의 날짜(앞 10자리)로 시작하는 행이 있으면 그 행을 덮어쓰고, 없으면 맨 뒤에 추가한다.
*/
func (e *SheetExporter) Export(ctx context.Context, row m.Row) error {

	if len(row) != len(m.Columns) {
		return fmt.Errorf("row has %d cells, want %d", len(row), len(m.Columns))
	}

	if err := e.ensureSheet(ctx); err != nil {
		return err
	}
	if err := e.ensureHeaders(ctx); err != nil {
		return err
	}

	day := datePrefix(row[0])
	colA, err := e.api.Values(ctx, e.rng("A:A"))
	if err != nil {
		return fmt.Errorf("read date column: %w", err)
	}

	lastCol := columnLetter(len(m.Columns))
	for i, cells := range colA {
		if i == 0 || len(cells) == 0 || day == "" {
			continue
		}
		if strings.HasPrefix(cells[0], day) {
			n := i + 1
			e.lg.Info().Msgf("Updating existing row %d for %s", n, day)
			return e.api.Update(ctx, e.rng(fmt.Sprintf("A%d:%s%d", n, lastCol, n)), row)
		}
	}

	e.lg.Info().Msgf("Adding new row for %s", day)
	return e.api.Append(ctx, e.rng("A1:"+lastCol+"1"), row)
}

func (e *SheetExporter) ensureSheet(ctx context.Context) error {

	titles, err := e.api.SheetTitles(ctx)
	if err != nil {
		return fmt.Errorf("open spreadsheet: %w", err)
	}
	if slices.Contains(titles, e.title) {
		return nil
	}

	e.lg.Info().Msgf("Creating new sheet: %s", e.title)
	return e.api.AddSheet(ctx, e.title, sheetRows, int64(len(m.Columns)))
}

// 1행 첫 칸이 Date 가 아니면 시트를 비우고 헤더를 다시 쓴다
func (e *SheetExporter) ensureHeaders(ctx context.Context) error {

	first, err := e.api.Values(ctx, e.rng("A1:A1"))
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(first) > 0 && len(first[0]) > 0 && first[0][0] == m.Columns[0] {
		return nil
	}

	e.lg.Warn().Msg("header row missing. recreating sheet contents")
	if err := e.api.Clear(ctx, e.rng("A:"+columnLetter(len(m.Columns)))); err != nil {
		return err
	}
	return e.api.Append(ctx, e.rng("A1"), m.Columns)
}

func (e *SheetExporter) rng(cells string) string {
	return quoteSheet(e.title) + "!" + cells
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// 1 -> A, 21 -> U, 27 -> AA
func columnLetter(n int) string {
	var s []byte
	for n > 0 {
		n--
		s = append([]byte{byte('A' + n%26)}, s...)
		n /= 26
	}
	return string(s)
}

func datePrefix(cell string) string {
	if len(cell) < 10 {
		return cell
	}
	return cell[:10]
}

type googleSheets struct {
	srv *sheets.Service
	id  string
}

func (g *googleSheets) SheetTitles(ctx context.Context) ([]string, error) {

	ss, err := g.srv.Spreadsheets.Get(g.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (g *googleSheets) AddSheet(ctx context.Context, title string, rows, cols int64) error {

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    rows,
						ColumnCount: cols,
					},
				},
			},
		}},
	}
	_, err := g.srv.Spreadsheets.BatchUpdate(g.id, req).Context(ctx).Do()
	return err
}

func (g *googleSheets) Values(ctx context.Context, rng string) ([][]string, error) {

	vr, err := g.srv.Spreadsheets.Values.Get(g.id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([][]string, len(vr.Values))
	for i, r := range vr.Values {
		out[i] = make([]string, len(r))
		for j, c := range r {
			out[i][j] = fmt.Sprint(c)
		}
	}
	return out, nil
}

func (g *googleSheets) Clear(ctx context.Context, rng string) error {
	_, err := g.srv.Spreadsheets.Values.Clear(g.id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *googleSheets) Update(ctx context.Context, rng string, row []string) error {
	_, err := g.srv.Spreadsheets.Values.Update(g.id, rng, valueRange(row)).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (g *googleSheets) Append(ctx context.Context, rng string, row []string) error {
	_, err := g.srv.Spreadsheets.Values.Append(g.id, rng, valueRange(row)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func valueRange(row []string) *sheets.ValueRange {
	cells := make([]interface{}, len(row))
	for i, c := range row {
		cells[i] = c
	}
	return &sheets.ValueRange{Values: [][]interface{}{cells}}
}
