package core

// Period is one named reporting interval. Start and End are inclusive.
type Period struct {
	Name  string
	Start Date
	End   Date
}

// Catalog is the fixed, ordered list of reporting periods. Periods are
// contiguous and non-overlapping; the last one doubles as the far-future
// catch-all, so any date past its end still maps to it. Dates before the
// first period map to no period at all.
//
// The catalog is configuration data chosen by the business, never inferred
// from task dates.
type Catalog struct {
	periods []Period
}

// NewCatalog builds a catalog from an ordered period list.
func NewCatalog(periods []Period) Catalog {
	return Catalog{periods: periods}
}

// DefaultCatalog returns the reporting periods used by the portfolio views.
func DefaultCatalog() Catalog {
	return NewCatalog([]Period{
		{Name: "2024 Q3-Q4", Start: NewDate(2024, 7, 1), End: NewDate(2024, 12, 31)},
		{Name: "2025 Q1-Q2", Start: NewDate(2025, 1, 1), End: NewDate(2025, 6, 30)},
		{Name: "2025 Q3-Q4", Start: NewDate(2025, 7, 1), End: NewDate(2025, 12, 31)},
		{Name: "2026-2027", Start: NewDate(2026, 1, 1), End: NewDate(2027, 12, 31)},
	})
}

// Names returns the period names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c.periods))
	for i, p := range c.periods {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of periods in the catalog.
func (c Catalog) Len() int {
	return len(c.periods)
}

// PeriodFor maps a date to the period containing it. Dates past the last
// period's end fall back to the last period; dates before the first period
// report ok=false.
func (c Catalog) PeriodFor(d Date) (name string, ok bool) {
	if len(c.periods) == 0 {
		return "", false
	}
	if d.Before(c.periods[0].Start.Time) {
		return "", false
	}
	for _, p := range c.periods {
		if !d.After(p.End.Time) {
			return p.Name, true
		}
	}
	return c.periods[len(c.periods)-1].Name, true
}

// PeriodsTouched returns, in catalog order, the names of every period whose
// interval intersects [start, end] inclusive. A range spanning several
// periods touches all of them, intermediate ones included. A range entirely
// past the catalog still touches the trailing catch-all period; a range
// entirely before it touches nothing.
func (c Catalog) PeriodsTouched(start, end Date) []string {
	if len(c.periods) == 0 || end.Before(start.Time) {
		return nil
	}
	var names []string
	for i, p := range c.periods {
		periodEnd := p.End
		if i == len(c.periods)-1 {
			// Catch-all: treat the last period as open-ended.
			periodEnd = end
		}
		if !start.After(periodEnd.Time) && !end.Before(p.Start.Time) {
			names = append(names, p.Name)
		}
	}
	return names
}
