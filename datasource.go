package main

import (
	"cloud.google.com/go/civil"
)

// Quote is a price observation for one symbol on one date
type Quote struct {
	Symbol string
	Date   civil.Date
	Bid    Money
	Ask    Money
}

// Dividend is a per-share distribution paid on Date
type Dividend struct {
	Symbol string
	Date   civil.Date
	Value  Money
}

// DataSource supplies economic and market data by date. Every lookup can
// come back empty; callers decide whether that is fatal.
type DataSource interface {
	// Inflation is the monthly inflation rate in effect on d.
	Inflation(d civil.Date) (float64, bool)
	// InterestRate is the annual market reference rate on d.
	InterestRate(d civil.Date) (float64, bool)
	HousePriceReturn(d civil.Date) (float64, bool)
	Quote(d civil.Date, symbol string) (Quote, bool)
	Quotes(d civil.Date) []Quote
	Dividends(d civil.Date) []Dividend
}

// SeriesByDate maps a date to a single value
type SeriesByDate map[civil.Date]float64

// HashMapSource is an in-memory DataSource backed by maps keyed on date
type HashMapSource struct {
	inflation   SeriesByDate
	rates       SeriesByDate
	housePrices SeriesByDate
	quotes      map[civil.Date][]Quote
	dividends   map[civil.Date][]Dividend
}

// NewHashMapSource returns an empty source; use the With methods to fill it.
func NewHashMapSource() *HashMapSource {
	return &HashMapSource{
		inflation:   SeriesByDate{},
		rates:       SeriesByDate{},
		housePrices: SeriesByDate{},
		quotes:      map[civil.Date][]Quote{},
		dividends:   map[civil.Date][]Dividend{},
	}
}

func (s *HashMapSource) WithInflation(series SeriesByDate) *HashMapSource {
	s.inflation = series
	return s
}

func (s *HashMapSource) WithRates(series SeriesByDate) *HashMapSource {
	s.rates = series
	return s
}

func (s *HashMapSource) WithHousePrices(series SeriesByDate) *HashMapSource {
	s.housePrices = series
	return s
}

func (s *HashMapSource) WithQuotes(quotes map[civil.Date][]Quote) *HashMapSource {
	s.quotes = quotes
	return s
}

func (s *HashMapSource) WithDividends(dividends map[civil.Date][]Dividend) *HashMapSource {
	s.dividends = dividends
	return s
}

// AddQuote appends a single quote, mostly useful in tests
func (s *HashMapSource) AddQuote(q Quote) *HashMapSource {
	s.quotes[q.Date] = append(s.quotes[q.Date], q)
	return s
}

// AddDividend appends a single dividend
func (s *HashMapSource) AddDividend(d Dividend) *HashMapSource {
	s.dividends[d.Date] = append(s.dividends[d.Date], d)
	return s
}

func (s *HashMapSource) Inflation(d civil.Date) (float64, bool) {
	v, ok := s.inflation[d]
	return v, ok
}

func (s *HashMapSource) InterestRate(d civil.Date) (float64, bool) {
	v, ok := s.rates[d]
	return v, ok
}

func (s *HashMapSource) HousePriceReturn(d civil.Date) (float64, bool) {
	v, ok := s.housePrices[d]
	return v, ok
}

func (s *HashMapSource) Quote(d civil.Date, symbol string) (Quote, bool) {
	for _, q := range s.quotes[d] {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return Quote{}, false
}

func (s *HashMapSource) Quotes(d civil.Date) []Quote {
	return s.quotes[d]
}

func (s *HashMapSource) Dividends(d civil.Date) []Dividend {
	return s.dividends[d]
}
