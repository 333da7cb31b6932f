package main

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// TransferResult is the outcome of a deposit, withdraw or liquidate call
type TransferResult int

const (
	TransferSuccess TransferResult = iota
	TransferFailure                // insufficient funds, never an exception
)

func (r TransferResult) String() string {
	switch r {
	case TransferSuccess:
		return "Success"
	case TransferFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// Ok reports whether the transfer went through
func (r TransferResult) Ok() bool {
	return r == TransferSuccess
}

// NICategory is the National Insurance category letter
type NICategory int

const (
	NICategoryA NICategory = iota
	NICategoryB
	NICategoryC
	NICategoryF
	NICategoryH
	NICategoryI
	NICategoryJ
	NICategoryL
	NICategoryM
	NICategoryS
	NICategoryV
	NICategoryZ
)

var niCategoryLetters = []string{"A", "B", "C", "F", "H", "I", "J", "L", "M", "S", "V", "Z"}

// AllNICategories lists every category in letter order
func AllNICategories() []NICategory {
	out := make([]NICategory, len(niCategoryLetters))
	for i := range niCategoryLetters {
		out[i] = NICategory(i)
	}
	return out
}

func (c NICategory) String() string {
	if int(c) < 0 || int(c) >= len(niCategoryLetters) {
		return "Unknown"
	}
	return niCategoryLetters[c]
}

// ParseNICategory converts a category letter ("A", "m") into a NICategory
func ParseNICategory(s string) (NICategory, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, letter := range niCategoryLetters {
		if letter == s {
			return NICategory(i), nil
		}
	}
	return NICategoryA, fmt.Errorf("%w: %q", ErrUnknownNICategory, s)
}

func (c NICategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *NICategory) UnmarshalText(text []byte) error {
	parsed, err := ParseNICategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// SimState is the simulation lifecycle state
type SimState int

const (
	SimReady         SimState = iota
	SimUnrecoverable          // terminal: tax due exceeded every liquidable account
)

func (s SimState) String() string {
	switch s {
	case SimReady:
		return "Ready"
	case SimUnrecoverable:
		return "Unrecoverable"
	default:
		return "Unknown"
	}
}

// Snapshot is a monthly observation of one investment wrapper
type Snapshot struct {
	Date        civil.Date
	Value       Money
	NetCashFlow Money // total paid in since the start of the run
	Inflation   float64
}

// AnnualFrame is the set of totals recorded at each tax settlement
type AnnualFrame struct {
	Date              civil.Date
	ISA               Money
	GIA               Money
	SIPP              Money
	Cash              Money
	GrossIncome       Money
	NetIncome         Money
	Expense           Money
	TaxPaid           Money // includes PAYE withheld during the year
	SIPPContributions Money
}

// Total returns the household's wealth at the frame date
func (f AnnualFrame) Total() Money {
	return f.Cash.Add(f.ISA).Add(f.GIA).Add(f.SIPP)
}

// Balances holds account values at a point in time
type Balances struct {
	Cash     Money
	ISA      Money
	GIA      Money
	SIPP     Money
	Mortgage Money
}

// Total returns cash + ISA + GIA + SIPP. The mortgage is reported separately.
func (b Balances) Total() Money {
	return b.Cash.Add(b.ISA).Add(b.GIA).Add(b.SIPP)
}

// SimulationResult contains everything recorded during one run
type SimulationResult struct {
	RunID         string
	Name          string
	Start         civil.Date
	End           civil.Date
	State         SimState
	FailedOn      civil.Date // set when State is SimUnrecoverable
	Final         Balances
	PaidIntoISA   Money
	PaidIntoGIA   Money
	PaidIntoSIPP  Money
	ISASnapshots  []Snapshot
	GIASnapshots  []Snapshot
	SIPPSnapshots []Snapshot
	Cash          []Money
	Annual        []AnnualFrame
	Events        []LoanEvent

	FailedExpenses int // expense withdrawals the bank could not cover
}

// TotalTaxPaid sums the tax recorded in every annual frame
func (r SimulationResult) TotalTaxPaid() Money {
	total := zero
	for _, f := range r.Annual {
		total = total.Add(f.TaxPaid)
	}
	return total
}

// Unrecoverable reports whether the run ended in the terminal failure state
func (r SimulationResult) Unrecoverable() bool {
	return r.State == SimUnrecoverable
}
