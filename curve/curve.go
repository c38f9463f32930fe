// Package curve builds a treasury yield curve from bond bulletin quotes and
// reads rates off it at arbitrary maturities.
//
// The curve is piecewise linear over whole-day maturities. Queries outside the
// observed range are clamped to the nearest observation, never extrapolated.
package curve

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DaysPerYear is the fixed day-count convention used to turn tenors into days.
const DaysPerYear = 365.25

// ErrEmptyCurve is returned when no observation survives ingestion.
var ErrEmptyCurve = errors.New("curve: no valid observation")

// Observation is one raw row of a bond bulletin.
type Observation struct {
	DateText string // DD/MM/YYYY
	RateText string // e.g. "2,210 %"
}

// Point is an ingested observation.
type Point struct {
	MaturityDate   civil.Date `json:"maturity_date"`
	DaysToMaturity int        `json:"days"`
	Rate           float64    `json:"rate"`
}

// YearsToMaturity is for display only.
func (p Point) YearsToMaturity() float64 {
	return float64(p.DaysToMaturity) / DaysPerYear
}

type Method int

const (
	Unavailable Method = iota
	FirstPoint
	LastPoint
	Interpolated
)

var methodNames = []string{"Unavailable", "FirstPoint", "LastPoint", "Interpolated"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return ""
	}
	return methodNames[m]
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(b []byte) error {
	i := slices.Index(methodNames, string(b))
	if i < 0 {
		return fmt.Errorf("unknown method %q", b)
	}
	*m = Method(i)
	return nil
}

// Result is the outcome of one query. Rate is meaningful only when Available is true.
type Result struct {
	TargetYears float64 `json:"target_years"`
	TargetDays  int     `json:"target_days"`
	Rate        float64 `json:"rate"`
	Available   bool    `json:"available"`
	Method      Method  `json:"method"`
	Before      *Point  `json:"point_before,omitempty"`
	After       *Point  `json:"point_after,omitempty"`
	Used        *Point  `json:"point_used,omitempty"`
}

// Curve is immutable once built.
type Curve struct {
	reference civil.Date
	points    []Point
	skipped   []*ParseError
}

// New ingests raw observations against the reference date.
// Unparseable and already matured rows are dropped and reported by Skipped.
// It returns ErrEmptyCurve, along with the curve, when nothing is left.
func New(reference civil.Date, obs []Observation) (*Curve, error) {
	c := &Curve{reference: reference}

	points := make([]Point, 0, len(obs))
	for i, o := range obs {
		p, err := parseObservation(reference, o)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Row = i
				c.skipped = append(c.skipped, pe)
			}
			continue
		}
		if p.DaysToMaturity < 0 {
			continue
		}
		points = append(points, p)
	}

	// stable sort keeps scrape order among equal day counts, so compaction keeps the first one seen
	slices.SortStableFunc(points, func(a, b Point) int {
		return cmp.Compare(a.DaysToMaturity, b.DaysToMaturity)
	})
	c.points = slices.CompactFunc(points, func(a, b Point) bool {
		return a.DaysToMaturity == b.DaysToMaturity
	})

	if len(c.points) == 0 {
		return c, ErrEmptyCurve
	}
	return c, nil
}

func (c *Curve) Reference() civil.Date {
	return c.reference
}

// Points returns a copy of the ingested points, sorted by maturity.
func (c *Curve) Points() []Point {
	if c == nil {
		return nil
	}
	return slices.Clone(c.points)
}

func (c *Curve) Skipped() []*ParseError {
	if c == nil {
		return nil
	}
	return c.skipped
}

func (c *Curve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.points)
}

// TargetDays converts a tenor in years to whole days, truncating.
func TargetDays(years float64) int {
	return int(math.Floor(years * DaysPerYear))
}

// RateAt estimates the rate at targetYears. A nil or empty curve, or a target
// that is not a positive finite number, yields an Unavailable result.
func (c *Curve) RateAt(targetYears float64) Result {
	res := Result{TargetYears: targetYears}
	if math.IsNaN(targetYears) || math.IsInf(targetYears, 0) || targetYears <= 0 {
		return res
	}
	res.TargetDays = TargetDays(targetYears)

	if c.Len() == 0 {
		return res
	}

	first, last := c.points[0], c.points[len(c.points)-1]
	switch {
	case len(c.points) == 1, res.TargetDays <= first.DaysToMaturity:
		return res.boundary(first, FirstPoint)
	case res.TargetDays >= last.DaysToMaturity:
		return res.boundary(last, LastPoint)
	}

	i, _ := slices.BinarySearchFunc(c.points, res.TargetDays, func(p Point, t int) int {
		return cmp.Compare(p.DaysToMaturity, t)
	})
	// on an exact hit i is the quote itself, which then closes the pair on the right
	return res.interpolate(c.points[i-1], c.points[i])
}

func (r Result) boundary(p Point, m Method) Result {
	r.Rate = p.Rate
	r.Available = true
	r.Method = m
	r.Used = &p
	return r
}

func (r Result) interpolate(p1, p2 Point) Result {
	r.Available = true
	r.Method = Interpolated
	r.Before, r.After = &p1, &p2

	d1, d2 := p1.DaysToMaturity, p2.DaysToMaturity
	if d1 == d2 {
		r.Rate = p1.Rate
		return r
	}

	rate := p1.Rate + float64(r.TargetDays-d1)*(p2.Rate-p1.Rate)/float64(d2-d1)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Result{TargetYears: r.TargetYears, TargetDays: r.TargetDays}
	}
	r.Rate = decimal.NewFromFloat(rate).Round(3).InexactFloat64()
	return r
}
