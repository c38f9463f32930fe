package model

import (
	"errors"
)

// 수집 모듈
type Source uint

const (
	BkamForex Source = iota + 1
	BkamTreasury
	InvestingMasi
	TradingEconomics
	YahooMarkets
)

var sourceList = []string{"bkam_forex", "bkam_treasury", "investing_masi", "trading_economics", "yahoo_markets"}

func (s Source) String() string {
	if s == 0 || int(s) > len(sourceList) {
		return ""
	}
	return sourceList[s-1]
}

func ToSource(s string) (Source, error) {

	for i, name := range sourceList {
		if s == name {
			return Source(i + 1), nil
		}
	}
	return 0, errors.New("존재하지 않는 수집 모듈. 입력 값 :" + s)
}

func IsValidSource(s string) bool {
	_, err := ToSource(s)
	return err == nil
}

// 수집 순서대로 반환
func Sources() []Source {
	sources := make([]Source, len(sourceList))
	for i := range sourceList {
		sources[i] = Source(i + 1)
	}
	return sources
}
