package main

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// GrowthKind selects how a flow's value changes over time
type GrowthKind int

const (
	NoGrowth        GrowthKind = iota
	InflationLinked            // grows by the data source's inflation rate
	StaticGrowth               // grows by a fixed rate
	FixedTableGrowth           // grows by a rate looked up per date
)

func (k GrowthKind) String() string {
	switch k {
	case NoGrowth:
		return "None"
	case InflationLinked:
		return "InflationLinked"
	case StaticGrowth:
		return "Static"
	case FixedTableGrowth:
		return "FixedTable"
	default:
		return "Unknown"
	}
}

// GrowthPolicy mutates a flow's value whenever its schedule triggers
type GrowthPolicy struct {
	Kind     GrowthKind
	Rate     float64      // StaticGrowth only
	Table    SeriesByDate // FixedTableGrowth only
	Schedule Schedule
}

// NoGrowthPolicy keeps the value constant
func NoGrowthPolicy() GrowthPolicy {
	return GrowthPolicy{Kind: NoGrowth}
}

// Apply returns value grown for date d. Days off the policy's schedule
// return value unchanged.
func (g GrowthPolicy) Apply(value Money, d civil.Date, source DataSource) (Money, error) {
	if g.Kind == NoGrowth || !g.Schedule.Check(d) {
		return value, nil
	}
	switch g.Kind {
	case InflationLinked:
		rate, ok := source.Inflation(d)
		if !ok {
			return value, fmt.Errorf("inflation-linked growth on %s: %w", d, ErrMissingInflation)
		}
		return growBy(value, rate), nil
	case StaticGrowth:
		return growBy(value, g.Rate), nil
	case FixedTableGrowth:
		rate, ok := g.Table[d]
		if !ok {
			return value, fmt.Errorf("fixed-table growth on %s: %w", d, ErrMissingGrowthRate)
		}
		return growBy(value, rate), nil
	default:
		return value, nil
	}
}
