package curve

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// 일, 월은 한 자리도 허용
const bulletinDateLayout = "2/1/2006"

// ParseError reports a bulletin row that could not be ingested.
type ParseError struct {
	Row   int
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: invalid %s %q: %v", e.Row, e.Field, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseDate reads a DD/MM/YYYY bulletin date.
func ParseDate(s string) (civil.Date, error) {
	t, err := time.Parse(bulletinDateLayout, strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}

// ParseRate reads a locale formatted percentage such as "2,210 %" or "3.1%".
// Spaces (including non-breaking ones) and the percent sign are dropped and a
// comma decimal separator becomes a period.
func ParseRate(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '%' {
			return -1
		}
		if r == ',' {
			return '.'
		}
		return r
	}, s)
	if cleaned == "" {
		return 0, fmt.Errorf("empty rate")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, err
	}
	// "1e400" 처럼 지수 표기는 float64 범위를 넘을 수 있다
	v := d.InexactFloat64()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("rate out of range")
	}
	return v, nil
}

func parseObservation(reference civil.Date, o Observation) (Point, error) {
	date, err := ParseDate(o.DateText)
	if err != nil {
		return Point{}, &ParseError{Field: "date", Text: o.DateText, Err: err}
	}
	rate, err := ParseRate(o.RateText)
	if err != nil {
		return Point{}, &ParseError{Field: "rate", Text: o.RateText, Err: err}
	}

	return Point{
		MaturityDate:   date,
		DaysToMaturity: date.DaysSince(reference),
		Rate:           rate,
	}, nil
}
