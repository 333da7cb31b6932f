package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// MonthlyStatic spreads an annual rate evenly across months and sets it on
// every date.
func MonthlyStatic(dates []civil.Date, annual float64) SeriesByDate {
	monthly := annual / 12
	out := make(SeriesByDate, len(dates))
	for _, d := range dates {
		out[d] = monthly
	}
	return out
}

// Constant sets the same value on every date.
func Constant(dates []civil.Date, v float64) SeriesByDate {
	out := make(SeriesByDate, len(dates))
	for _, d := range dates {
		out[d] = v
	}
	return out
}

// MonthlyNormal draws one monthly rate per calendar month from a normal
// distribution and holds it for every day of that month.
func MonthlyNormal(dates []civil.Date, muAnnual, sdAnnual float64, rng *rand.Rand) SeriesByDate {
	mu := muAnnual / 12
	sd := sdAnnual / math.Sqrt(12)

	out := make(SeriesByDate, len(dates))
	var month time.Month
	var year int
	var val float64
	for i, d := range dates {
		if i == 0 || d.Month != month || d.Year != year {
			month, year = d.Month, d.Year
			val = mu + sd*rng.NormFloat64()
		}
		out[d] = val
	}
	return out
}

// RandomWalkQuotes prices symbol with a daily geometric random walk whose
// drift and volatility come from the index.
func RandomWalkQuotes(dates []civil.Date, symbol string, index StockIndex, startPrice float64, rng *rand.Rand) []Quote {
	const daysPerYear = 365.0
	drift := index.PriceReturn() / daysPerYear
	sd := index.AnnualVolatility() / math.Sqrt(daysPerYear)

	quotes := make([]Quote, 0, len(dates))
	price := startPrice
	for _, d := range dates {
		p := decimal.NewFromFloat(price).Round(4)
		quotes = append(quotes, Quote{Symbol: symbol, Date: d, Bid: p, Ask: p})
		price *= 1 + drift + sd*rng.NormFloat64()
		if price < 0.01 {
			price = 0.01
		}
	}
	return quotes
}

// QuarterlyDividends pays a quarter of the index yield on the 15th of March,
// June, September and December, per share at that day's price.
func QuarterlyDividends(quotes []Quote, index StockIndex) []Dividend {
	var out []Dividend
	quarterYield := decimal.NewFromFloat(index.DividendYield / 4)
	for _, q := range quotes {
		if q.Date.Day != 15 {
			continue
		}
		switch q.Date.Month {
		case time.March, time.June, time.September, time.December:
			out = append(out, Dividend{Symbol: q.Symbol, Date: q.Date, Value: q.Bid.Mul(quarterYield).Round(6)})
		}
	}
	return out
}

// BuildMarketSource generates a complete synthetic data source for the
// clock's dates. Each call with the same seed produces the same series.
func BuildMarketSource(dates []civil.Date, market MarketConfig, seed uint64) (*HashMapSource, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	quotes := map[civil.Date][]Quote{}
	dividends := map[civil.Date][]Dividend{}
	for _, sym := range market.Symbols {
		index := GetStockIndexByID(sym.Index)
		if index == nil {
			return nil, fmt.Errorf("symbol %s: unknown index %q", sym.Symbol, sym.Index)
		}
		startPrice := sym.StartPrice
		if startPrice <= 0 {
			startPrice = 100
		}
		series := RandomWalkQuotes(dates, sym.Symbol, *index, startPrice, rng)
		for _, q := range series {
			quotes[q.Date] = append(quotes[q.Date], q)
		}
		for _, d := range QuarterlyDividends(series, *index) {
			dividends[d.Date] = append(dividends[d.Date], d)
		}
	}

	var inflation SeriesByDate
	if market.InflationVolatility > 0 {
		inflation = MonthlyNormal(dates, market.InflationMean, market.InflationVolatility, rng)
	} else {
		inflation = MonthlyStatic(dates, market.InflationMean)
	}

	return NewHashMapSource().
		WithInflation(inflation).
		WithRates(Constant(dates, market.BaseRate)).
		WithHousePrices(MonthlyStatic(dates, market.HousePriceGrowth)).
		WithQuotes(quotes).
		WithDividends(dividends), nil
}
