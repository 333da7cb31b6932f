package main

import "strings"

// StockIndex describes a market index used to drive synthetic quote series.
// Returns are nominal long-run annualised figures (end 2024), yields are
// trailing dividend yields.
type StockIndex struct {
	ID            string
	Name          string
	Country       string
	AnnualReturn  float64 // price return plus dividends, as decimal
	DividendYield float64 // part of AnnualReturn paid out as dividends
	Volatility    string  // "low", "medium", "high"
	InceptionYear int
}

// StockIndices contains the indices a scenario symbol can be priced from.
// Sources: MSCI, FTSE Russell, S&P Dow Jones Indices.
var StockIndices = []StockIndex{
	{ID: "ftse100", Name: "FTSE 100", Country: "UK", AnnualReturn: 0.074, DividendYield: 0.036, Volatility: "medium", InceptionYear: 1984},
	{ID: "ftse250", Name: "FTSE 250", Country: "UK", AnnualReturn: 0.095, DividendYield: 0.031, Volatility: "medium", InceptionYear: 1992},
	{ID: "ftseAim100", Name: "FTSE AIM 100", Country: "UK", AnnualReturn: 0.03, DividendYield: 0.012, Volatility: "high", InceptionYear: 2005},
	{ID: "ftseAllShare", Name: "FTSE All-Share", Country: "UK", AnnualReturn: 0.078, DividendYield: 0.035, Volatility: "medium", InceptionYear: 1962},
	{ID: "sp500", Name: "S&P 500", Country: "US", AnnualReturn: 0.104, DividendYield: 0.013, Volatility: "medium", InceptionYear: 1957},
	{ID: "nasdaq", Name: "NASDAQ Composite", Country: "US", AnnualReturn: 0.105, DividendYield: 0.007, Volatility: "high", InceptionYear: 1971},
	{ID: "msciWorld", Name: "MSCI World", Country: "Global", AnnualReturn: 0.085, DividendYield: 0.018, Volatility: "medium", InceptionYear: 1969},
	{ID: "ftseAllWorld", Name: "FTSE All-World", Country: "Global", AnnualReturn: 0.080, DividendYield: 0.019, Volatility: "medium", InceptionYear: 2000},
	{ID: "giltIndex", Name: "FTSE Actuaries UK Gilts", Country: "UK", AnnualReturn: 0.045, DividendYield: 0.04, Volatility: "low", InceptionYear: 1998},
}

// GetStockIndexByID finds an index by ID, ignoring case
func GetStockIndexByID(id string) *StockIndex {
	for i := range StockIndices {
		if strings.EqualFold(StockIndices[i].ID, id) {
			return &StockIndices[i]
		}
	}
	return nil
}

// AnnualVolatility maps the volatility label onto an annual standard deviation
func (s StockIndex) AnnualVolatility() float64 {
	switch s.Volatility {
	case "low":
		return 0.06
	case "high":
		return 0.25
	default:
		return 0.16
	}
}

// PriceReturn is the part of the total return not paid out as dividends
func (s StockIndex) PriceReturn() float64 {
	return s.AnnualReturn - s.DividendYield
}
