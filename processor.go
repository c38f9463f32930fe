package financebladi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"financebladi/curve"
	m "financebladi/internal/model"

	"gorm.io/datatypes"
)

const rowDateLayout = "2006-01-02 15:04:05"

// 시트 컬럼 순서의 해외 시세 키
var marketColumns = []struct {
	column string
	symbol string
}{
	{"BRENT (USD)", "BRENT"},
	{"WTI (USD)", "WTI"},
	{"GOLD (USD)", "GOLD"},
	{"SILVER (USD)", "SILVER"},
	{"BITCOIN (USD)", "BITCOIN"},
	{"EUR/USD", "EURUSD"},
	{"USD/JPY", "USDJPY"},
	{"GBP/USD", "GBPUSD"},
	{"S&P 500", "SP500"},
	{"Dow Jones", "DJIA"},
	{"NASDAQ", "NASDAQ"},
	{"US 10Y Yield (%)", "US10Y"},
	{"VIX", "VIX"},
}

var treasuryColumns = map[string]string{
	curve.BT2Y:  "BT2Y (%)",
	curve.BT5Y:  "BT5Y (%)",
	curve.BT10Y: "BT10Y (%)",
}

/*
스냅샷을 시트 한 행으로 변환.
값이 없거나 NaN 이면 빈 칸. 환율은 1000 을 넘으면 자릿수 오류로 보고 10000 으로 나눈다.
*/
func BuildRow(snap *m.Snapshot, at time.Time) m.Row {

	row := m.NewRow()
	row.Set("Date", at.Format(rowDateLayout))

	if snap == nil {
		return row
	}

	if fx := snap.Forex; fx != nil {
		row.Set("EUR/MAD", formatFloat(sanitizeForex(fx.EURMAD)))
		row.Set("USD/MAD", formatFloat(sanitizeForex(fx.USDMAD)))
	}

	if tr := snap.Treasury; tr != nil {
		for label, column := range treasuryColumns {
			if v, ok := tr.Values[label]; ok {
				row.Set(column, formatFloat(v))
			}
		}
	}

	if snap.Masi != nil {
		row.Set("MASI", strings.ReplaceAll(strings.TrimSpace(snap.Masi.Value), ",", ""))
	}

	if snap.Phosphate != nil {
		row.Set("Phosphate DAP (USD/T)", formatFloat(snap.Phosphate.Value))
	}

	if mk := snap.Markets; mk != nil {
		for _, c := range marketColumns {
			if v, ok := mk.Values[c.symbol]; ok {
				row.Set(c.column, formatFloat(v))
			}
		}
	}

	return row
}

// 이력 저장용 레코드
func BuildRecord(snap *m.Snapshot, row m.Row, at time.Time) (*m.DailyRecord, error) {

	cells, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}

	y, mo, d := at.Date()
	rec := &m.DailyRecord{
		Date:     datatypes.Date(time.Date(y, mo, d, 0, 0, 0, 0, at.Location())),
		Degraded: snap.Degraded,
		Cells:    cells,
		Snapshot: raw,
	}
	if fx := snap.Forex; fx != nil {
		rec.EurMad = sanitizeForex(fx.EURMAD)
		rec.UsdMad = sanitizeForex(fx.USDMAD)
	}
	if tr := snap.Treasury; tr != nil {
		rec.Bt2y = tr.Values[curve.BT2Y]
		rec.Bt5y = tr.Values[curve.BT5Y]
		rec.Bt10y = tr.Values[curve.BT10Y]
	}
	return rec, nil
}

func sanitizeForex(v float64) float64 {
	if v > 1000 {
		return v / 10000
	}
	return v
}

// 0 은 값 없음으로 본다
func formatFloat(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
