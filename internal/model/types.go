package model

import (
	"time"

	"financebladi/curve"

	"cloud.google.com/go/civil"
	"gorm.io/datatypes"
)

/*
memo. Snapshot 은 하루치 원본 수집 결과. raw_<ts>.json 으로 그대로 백업되고 대시보드가 다시 읽는다.
값이 없는 항목은 포인터 nil 로 둔다.
*/
type Snapshot struct {
	CollectedAt time.Time         `json:"collected_at"`
	Forex       *ForexRates       `json:"bkam_forex,omitempty"`
	Treasury    *TreasuryRates    `json:"bkam_treasury,omitempty"`
	Masi        *IndexQuote       `json:"investing_masi,omitempty"`
	Phosphate   *CommodityQuote   `json:"trading_economics,omitempty"`
	Markets     *MarketQuotes     `json:"yahoo_markets,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
	Degraded    bool              `json:"degraded"`
}

// 수집에 성공한 모듈 수
func (s Snapshot) Succeeded() int {
	n := 0
	if s.Forex != nil {
		n++
	}
	if s.Treasury != nil {
		n++
	}
	if s.Masi != nil {
		n++
	}
	if s.Phosphate != nil {
		n++
	}
	if s.Markets != nil {
		n++
	}
	return n
}

type ForexRates struct {
	EURMAD   float64 `json:"EUR/MAD"`
	USDMAD   float64 `json:"USD/MAD"`
	Fallback bool    `json:"fallback,omitempty"`
}

type TreasuryRates struct {
	Reference civil.Date         `json:"reference_date"`
	Points    []curve.Point      `json:"points"`
	Rates     curve.Rates        `json:"rates"`
	Values    map[string]float64 `json:"values"`
	Skipped   int                `json:"skipped_rows,omitempty"`
	Fallback  bool               `json:"fallback,omitempty"`
}

type IndexQuote struct {
	Value  string `json:"MASI"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

type CommodityQuote struct {
	Value  float64 `json:"PHOSPHATE_DAP"`
	Source string  `json:"source"`
}

type MarketQuotes struct {
	Values    map[string]float64 `json:"values"`
	Sources   map[string]string  `json:"sources"`
	Succeeded int                `json:"succeeded"`
	Total     int                `json:"total"`
}

// 하루 한 행. Date 기준 upsert
type DailyRecord struct {
	ID        uint           `json:"-"`
	Date      datatypes.Date `json:"date" gorm:"uniqueIndex"`
	EurMad    float64        `json:"eur_mad"`
	UsdMad    float64        `json:"usd_mad"`
	Bt2y      float64        `json:"bt2y"`
	Bt5y      float64        `json:"bt5y"`
	Bt10y     float64        `json:"bt10y"`
	Degraded  bool           `json:"degraded"`
	Cells     datatypes.JSON `json:"row"`
	Snapshot  datatypes.JSON `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Event struct {
	ID       uint
	IsActive bool
}
