package curve

// Tenor labels as they appear in the export.
const (
	BT2Y  = "BT2Y"
	BT5Y  = "BT5Y"
	BT10Y = "BT10Y"
)

type Tenor struct {
	Label string
	Years float64
}

// StandardTenors is the fixed query set, in export order.
var StandardTenors = []Tenor{
	{Label: BT2Y, Years: 2},
	{Label: BT5Y, Years: 5},
	{Label: BT10Y, Years: 10},
}

// FallbackRates are substituted when no curve can be built for the day.
var FallbackRates = map[string]float64{
	BT2Y:  2.50,
	BT5Y:  2.66,
	BT10Y: 2.98,
}

// Rates holds the standard tenor results keyed by label.
type Rates map[string]Result

// Standard queries c at every standard tenor. A nil curve gives three
// unavailable results.
func Standard(c *Curve) Rates {
	rates := make(Rates, len(StandardTenors))
	for _, t := range StandardTenors {
		rates[t.Label] = c.RateAt(t.Years)
	}
	return rates
}

// Available reports whether every standard tenor produced a rate.
func (r Rates) Available() bool {
	for _, t := range StandardTenors {
		if !r[t.Label].Available {
			return false
		}
	}
	return true
}

// Values returns the rate per label, taking the fallback for any tenor that
// is unavailable. degraded is true when at least one fallback was used.
func (r Rates) Values() (values map[string]float64, degraded bool) {
	values = make(map[string]float64, len(StandardTenors))
	for _, t := range StandardTenors {
		res, ok := r[t.Label]
		if ok && res.Available {
			values[t.Label] = res.Rate
			continue
		}
		values[t.Label] = FallbackRates[t.Label]
		degraded = true
	}
	return values, degraded
}
