package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	m "financebladi/internal/model"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

const tsLayout = "20060102_150405"

var ErrNoBackup = errors.New("no local backup")

// 실행마다 raw_<ts>.json, data_<ts>.csv (옵션으로 data_<ts>.parquet) 를 남긴다
type LocalStore struct {
	dir     string
	parquet bool
	now     func() time.Time
	lg      zerolog.Logger
}

type LocalOption func(*LocalStore)

func WithParquet(enabled bool) LocalOption {
	return func(l *LocalStore) {
		l.parquet = enabled
	}
}

func WithClock(now func() time.Time) LocalOption {
	return func(l *LocalStore) {
		l.now = now
	}
}

func NewLocalStore(dir string, opts ...LocalOption) (*LocalStore, error) {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}

	l := &LocalStore{
		dir: dir,
		now: time.Now,
		lg:  zerolog.New(os.Stdout).With().Str("Module", "LocalStore").Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *LocalStore) Dir() string {
	return l.dir
}

func (l *LocalStore) Save(snap *m.Snapshot, row m.Row) error {

	ts := l.now().Format(tsLayout)

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(l.dir, "raw_"+ts+".json"), b, 0o644); err != nil {
		return fmt.Errorf("failed to write raw backup: %w", err)
	}

	if err := writeCSV(filepath.Join(l.dir, "data_"+ts+".csv"), row); err != nil {
		return err
	}

	if l.parquet {
		if err := writeParquet(filepath.Join(l.dir, "data_"+ts+".parquet"), row, snap != nil && snap.Degraded); err != nil {
			return err
		}
	}

	l.lg.Info().Msgf("Saved local backup %s", ts)
	return nil
}

// 가장 최근 raw 스냅샷
func (l *LocalStore) Latest() (*m.Snapshot, error) {

	files, err := l.files("raw_", ".json")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoBackup
	}

	b, err := os.ReadFile(files[len(files)-1])
	if err != nil {
		return nil, err
	}

	var snap m.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("invalid backup %s: %w", filepath.Base(files[len(files)-1]), err)
	}
	return &snap, nil
}

// 최근 n 개 행. 최신이 먼저
func (l *LocalStore) Rows(n int) ([]m.Row, error) {

	files, err := l.files("data_", ".csv")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoBackup
	}

	rows := make([]m.Row, 0, n)
	for i := len(files) - 1; i >= 0 && len(rows) < n; i-- {
		row, err := readCSV(files[i])
		if err != nil {
			l.lg.Warn().Err(err).Str("file", files[i]).Msg("skip unreadable backup")
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (l *LocalStore) LatestRow() (m.Row, error) {
	rows, err := l.Rows(1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoBackup
	}
	return rows[0], nil
}

// 파일명의 타임스탬프 순서가 곧 시간 순서
func (l *LocalStore) files(prefix, ext string) ([]string, error) {

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		out = append(out, filepath.Join(l.dir, name))
	}
	slices.Sort(out)
	return out, nil
}

func writeCSV(path string, row m.Row) error {

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv backup: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(m.Columns); err != nil {
		return err
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func readCSV(path string) (m.Row, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data row in %s", filepath.Base(path))
	}

	row := m.NewRow()
	copy(row, records[1])
	return row, nil
}

// parquet 파일 한 행. 빈 칸은 null
type parquetRow struct {
	Date         string   `parquet:"date,snappy"`
	EurMad       *float64 `parquet:"eur_mad,optional,snappy"`
	UsdMad       *float64 `parquet:"usd_mad,optional,snappy"`
	Bt2y         *float64 `parquet:"bt2y,optional,snappy"`
	Bt5y         *float64 `parquet:"bt5y,optional,snappy"`
	Bt10y        *float64 `parquet:"bt10y,optional,snappy"`
	Masi         *float64 `parquet:"masi,optional,snappy"`
	PhosphateDap *float64 `parquet:"phosphate_dap,optional,snappy"`
	Brent        *float64 `parquet:"brent,optional,snappy"`
	Wti          *float64 `parquet:"wti,optional,snappy"`
	Gold         *float64 `parquet:"gold,optional,snappy"`
	Silver       *float64 `parquet:"silver,optional,snappy"`
	Bitcoin      *float64 `parquet:"bitcoin,optional,snappy"`
	EurUsd       *float64 `parquet:"eur_usd,optional,snappy"`
	UsdJpy       *float64 `parquet:"usd_jpy,optional,snappy"`
	GbpUsd       *float64 `parquet:"gbp_usd,optional,snappy"`
	Sp500        *float64 `parquet:"sp500,optional,snappy"`
	Djia         *float64 `parquet:"djia,optional,snappy"`
	Nasdaq       *float64 `parquet:"nasdaq,optional,snappy"`
	Us10y        *float64 `parquet:"us10y,optional,snappy"`
	Vix          *float64 `parquet:"vix,optional,snappy"`
	Degraded     bool     `parquet:"degraded"`
}

func toParquetRow(row m.Row, degraded bool) parquetRow {

	num := func(i int) *float64 {
		if i >= len(row) || row[i] == "" {
			return nil
		}
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return nil
		}
		return &v
	}

	return parquetRow{
		Date:         row[0],
		EurMad:       num(1),
		UsdMad:       num(2),
		Bt2y:         num(3),
		Bt5y:         num(4),
		Bt10y:        num(5),
		Masi:         num(6),
		PhosphateDap: num(7),
		Brent:        num(8),
		Wti:          num(9),
		Gold:         num(10),
		Silver:       num(11),
		Bitcoin:      num(12),
		EurUsd:       num(13),
		UsdJpy:       num(14),
		GbpUsd:       num(15),
		Sp500:        num(16),
		Djia:         num(17),
		Nasdaq:       num(18),
		Us10y:        num(19),
		Vix:          num(20),
		Degraded:     degraded,
	}
}

func writeParquet(path string, row m.Row, degraded bool) error {

	if len(row) == 0 {
		return errors.New("empty row")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[parquetRow](file)
	if _, err := writer.Write([]parquetRow{toParquetRow(row, degraded)}); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	return writer.Close()
}
