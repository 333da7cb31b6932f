package main

import "errors"

var (
	// ErrMissingInflation is returned when a step needs an inflation figure the data source lacks.
	ErrMissingInflation = errors.New("no inflation data for date")
	// ErrMissingRate is returned when a mortgage refix finds no market rate.
	ErrMissingRate = errors.New("no interest rate data for date")
	// ErrMissingGrowthRate is returned by fixed-table growth for dates outside the table.
	ErrMissingGrowthRate = errors.New("no growth rate in table for date")
	// ErrNoIncomeThisTick means a percentage-of-income expense ran before any income posted.
	ErrNoIncomeThisTick = errors.New("percentage of income expense evaluated with no income this tick")
	// ErrInsufficientFunds is the strategy-level withdraw failure.
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMissingAccount    = errors.New("scenario is missing an investment account")
	ErrUnknownFlowType   = errors.New("unknown flow type")
	ErrUnknownStackType  = errors.New("unknown stack type")
	ErrUnknownSchedule   = errors.New("unknown schedule type")
	ErrUnknownNICategory = errors.New("unknown NI category")
)
