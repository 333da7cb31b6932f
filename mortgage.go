package main

import (
	"fmt"
	"math"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
)

// Lenders reprice a finished fix at the market reference rate plus this margin.
const refixMargin = 0.04

// mortgagePaymentDay is the day of the month every payment is taken
const mortgagePaymentDay = 25

// LoanEventKind identifies what happened on a mortgage payment date
type LoanEventKind int

const (
	PaymentSuccess LoanEventKind = iota
	PaymentFailure
	LoanCompleted
)

func (k LoanEventKind) String() string {
	switch k {
	case PaymentSuccess:
		return "PaymentSuccess"
	case PaymentFailure:
		return "PaymentFailure"
	case LoanCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// LoanEvent records one mortgage payment attempt or the loan closing
type LoanEvent struct {
	Kind    LoanEventKind
	Date    civil.Date
	Amount  Money
	Balance Money // outstanding after the event
}

// MortgageTerms are the starting parameters of a loan
type MortgageTerms struct {
	Principal   Money
	Rate        float64 // annual, for the initial fix
	TermYears   int
	FixYears    int
	Overpayment Money // monthly principal to pay when above the minimum
	HouseValue  Money
}

// AmortizingMortgage is a repayment mortgage with a fixed-rate window that
// reprices at the market rate when it ends.
type AmortizingMortgage struct {
	clock  *Clock
	source DataSource
	logger *zap.Logger

	balance        Money
	rate           float64
	remainingYears int
	fixYears       int
	fixEnd         civil.Date
	minimumPayment Money
	overpayment    Money
	houseValue     Money
	schedule       Schedule
	events         []LoanEvent
}

// NewAmortizingMortgage starts a loan on the clock's current date
func NewAmortizingMortgage(clock *Clock, source DataSource, terms MortgageTerms, logger *zap.Logger) *AmortizingMortgage {
	if logger == nil {
		logger = zap.NewNop()
	}
	term := terms.TermYears
	if term < 1 {
		term = 1
	}
	fix := terms.FixYears
	if fix < 1 {
		fix = 1
	}
	m := &AmortizingMortgage{
		clock:          clock,
		source:         source,
		logger:         logger,
		balance:        terms.Principal,
		rate:           terms.Rate,
		remainingYears: term,
		fixYears:       fix,
		overpayment:    terms.Overpayment,
		houseValue:     terms.HouseValue,
		schedule:       Monthly(mortgagePaymentDay),
	}
	m.fixEnd = fixWindowEnd(clock.Now(), fix)
	m.minimumPayment = minimumPayment(m.balance, m.remainingYears)
	return m
}

// fixWindowEnd measures a fix in 52-week years
func fixWindowEnd(from civil.Date, fixYears int) civil.Date {
	return from.AddDays(fixYears * 52 * 7)
}

// minimumPayment spreads the balance evenly over the remaining months
func minimumPayment(balance Money, remainingYears int) Money {
	months := M(float64(remainingYears * 12))
	return balance.Div(months)
}

// ScheduledPayment is the level annuity payment for a loan of principal at
// an annual rate over termYears. Reports use it to compare with the
// straight-line minimum.
func ScheduledPayment(principal Money, rate float64, termYears int) Money {
	if termYears <= 0 {
		return principal.Mul(M(rate / 12))
	}
	monthlyRate := rate / 12
	n := float64(termYears * 12)
	if monthlyRate == 0 {
		return principal.Div(M(n))
	}
	factor := math.Pow(1+monthlyRate, n)
	return principal.Mul(M(monthlyRate * factor / (factor - 1)))
}

func (m *AmortizingMortgage) Balance() Money { return m.balance }
func (m *AmortizingMortgage) Rate() float64 { return m.rate }
func (m *AmortizingMortgage) MinimumPayment() Money { return m.minimumPayment }
func (m *AmortizingMortgage) FixEnd() civil.Date { return m.fixEnd }
func (m *AmortizingMortgage) Events() []LoanEvent { return m.events }
func (m *AmortizingMortgage) HouseValue() Money { return m.houseValue }

// Equity is house value less the outstanding balance
func (m *AmortizingMortgage) Equity() Money {
	return m.houseValue.Sub(m.balance)
}

// Completed reports whether the loan has been repaid
func (m *AmortizingMortgage) Completed() bool {
	return !m.balance.IsPositive()
}

// refix moves the loan onto the market rate for another fix window
func (m *AmortizingMortgage) refix(today civil.Date) error {
	market, ok := m.source.InterestRate(today)
	if !ok {
		return fmt.Errorf("mortgage refix on %s: %w", today, ErrMissingRate)
	}
	m.rate = market + refixMargin
	m.remainingYears -= m.fixYears
	if m.remainingYears < 1 {
		m.remainingYears = 1
	}
	m.fixEnd = fixWindowEnd(today, m.fixYears)
	m.minimumPayment = minimumPayment(m.balance, m.remainingYears)
	m.logger.Info("mortgage refixed",
		zap.String("date", today.String()),
		zap.Float64("rate", m.rate),
		zap.Int("remaining_years", m.remainingYears),
		zap.String("minimum", m.minimumPayment.StringFixed(2)),
	)
	return nil
}

// revalue applies the month's house price return on the first of the month.
// Missing data leaves the value unchanged.
func (m *AmortizingMortgage) revalue(today civil.Date) {
	if today.Day != 1 || !m.houseValue.IsPositive() {
		return
	}
	if r, ok := m.source.HousePriceReturn(today); ok {
		m.houseValue = growBy(m.houseValue, r)
	}
}

// Pay takes today's payment from account if today is a payment date. It
// returns the amount paid, zero when nothing was due or the payment failed.
func (m *AmortizingMortgage) Pay(account Transferer) (Money, error) {
	today := m.clock.Now()
	m.revalue(today)
	if m.Completed() || !m.schedule.Check(today) {
		return zero, nil
	}

	if !today.Before(m.fixEnd) {
		if err := m.refix(today); err != nil {
			return zero, err
		}
	}

	interest := m.balance.Mul(M(m.rate)).Div(twelve).Round(2)
	principal := minMoney(maxMoney(m.minimumPayment, m.overpayment), m.balance)
	due := principal.Add(interest)

	if res := account.Withdraw(due); !res.Ok() {
		m.events = append(m.events, LoanEvent{Kind: PaymentFailure, Date: today, Amount: due, Balance: m.balance})
		m.logger.Warn("mortgage payment failed",
			zap.String("date", today.String()),
			zap.String("due", due.StringFixed(2)),
		)
		return zero, nil
	}

	m.balance = m.balance.Sub(principal)
	m.events = append(m.events, LoanEvent{Kind: PaymentSuccess, Date: today, Amount: due, Balance: m.balance})
	if m.Completed() {
		m.balance = zero
		m.events = append(m.events, LoanEvent{Kind: LoanCompleted, Date: today, Amount: zero, Balance: zero})
		m.logger.Info("mortgage repaid", zap.String("date", today.String()))
	}
	return due, nil
}
