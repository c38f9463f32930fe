package model

import "slices"

// 시트 컬럼. 순서 변경 불가
var Columns = []string{
	"Date",
	"EUR/MAD", "USD/MAD",
	"BT2Y (%)", "BT5Y (%)", "BT10Y (%)",
	"MASI",
	"Phosphate DAP (USD/T)",
	"BRENT (USD)", "WTI (USD)", "GOLD (USD)", "SILVER (USD)", "BITCOIN (USD)",
	"EUR/USD", "USD/JPY", "GBP/USD",
	"S&P 500", "Dow Jones", "NASDAQ",
	"US 10Y Yield (%)", "VIX",
}

// 시트 한 행. 항상 len(Columns) 칸
type Row []string

func NewRow() Row {
	return make(Row, len(Columns))
}

func (r Row) Get(column string) string {
	i := slices.Index(Columns, column)
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

func (r Row) Set(column, value string) {
	if i := slices.Index(Columns, column); i >= 0 && i < len(r) {
		r[i] = value
	}
}
