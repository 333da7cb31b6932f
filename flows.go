package main

import (
	"fmt"

	"go.uber.org/zap"
)

// FlowKind is the closed set of scheduled cash events
type FlowKind int

const (
	WageFlow           FlowKind = iota // employment income settled annually
	PAYEWageFlow                       // employment income taxed at source
	RentalFlow                         // gross rental income
	SelfEmploymentFlow                 // trading income
	SavingsFlow                        // interest received outside the wrappers
	ExpenseFlow                        // fixed expense
	PercentExpenseFlow                 // expense as a share of today's income
)

func (k FlowKind) String() string {
	switch k {
	case WageFlow:
		return "Wage"
	case PAYEWageFlow:
		return "PAYEWage"
	case RentalFlow:
		return "Rental"
	case SelfEmploymentFlow:
		return "SelfEmployment"
	case SavingsFlow:
		return "Savings"
	case ExpenseFlow:
		return "Expense"
	case PercentExpenseFlow:
		return "PercentExpense"
	default:
		return "Unknown"
	}
}

// IsIncome reports whether the flow adds to household income
func (k FlowKind) IsIncome() bool {
	return k != ExpenseFlow && k != PercentExpenseFlow
}

// Flow is one scheduled income or expense. Value is the amount per trigger
// and changes over time through Growth.
type Flow struct {
	Name     string
	Kind     FlowKind
	Value    Money
	Pct      Money // pension contribution share for wages, income share for PercentExpenseFlow
	Schedule Schedule
	Growth   GrowthPolicy
}

// Check runs the flow's effect if it triggers today, then applies growth.
func (f *Flow) Check(s *Simulation) error {
	today := s.clock.Now()
	if f.Schedule.Check(today) {
		if err := f.apply(s); err != nil {
			return fmt.Errorf("flow %s on %s: %w", f.Name, today, err)
		}
	}
	grown, err := f.Growth.Apply(f.Value, today, s.source)
	if err != nil {
		return fmt.Errorf("flow %s: %w", f.Name, err)
	}
	f.Value = grown
	return nil
}

func (f *Flow) apply(s *Simulation) error {
	switch f.Kind {
	case WageFlow:
		net := f.Value.Sub(f.contribute(s))
		s.bank.Deposit(net)
		s.year.NonPAYEEmployment = s.year.NonPAYEEmployment.Add(f.Value)
		s.recordIncome(f.Value, net)
	case PAYEWageFlow:
		applied := f.contribute(s)
		paye := CalculatePAYE(f.Value, applied, s.nic, s.taxConfig).Total()
		net := f.Value.Sub(applied).Sub(paye)
		s.bank.Deposit(net)
		s.year.PAYEEmployment = s.year.PAYEEmployment.Add(f.Value)
		s.year.PAYETaxPaid = s.year.PAYETaxPaid.Add(paye)
		s.recordIncome(f.Value, net)
	case RentalFlow:
		s.bank.Deposit(f.Value)
		s.year.Rental = s.year.Rental.Add(f.Value)
		s.recordIncome(f.Value, f.Value)
	case SelfEmploymentFlow:
		s.bank.Deposit(f.Value)
		s.year.SelfEmployment = s.year.SelfEmployment.Add(f.Value)
		s.recordIncome(f.Value, f.Value)
	case SavingsFlow:
		s.bank.Deposit(f.Value)
		s.year.Savings = s.year.Savings.Add(f.Value)
		s.recordIncome(f.Value, f.Value)
	case ExpenseFlow:
		s.spend(f.Name, f.Value)
	case PercentExpenseFlow:
		if !s.tickIncome.IsPositive() {
			return ErrNoIncomeThisTick
		}
		s.spend(f.Name, s.tickIncome.Mul(f.Pct))
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFlowType, f.Kind)
	}
	return nil
}

// contribute pays the pension share of a wage into the SIPP and returns the
// amount it took. Whatever the SIPP refuses stays in pay.
func (f *Flow) contribute(s *Simulation) Money {
	applied, _ := s.sipp.DepositWrapper(f.Value.Mul(f.Pct))
	s.year.Contributions = s.year.Contributions.Add(applied)
	s.paidIntoSIPP = s.paidIntoSIPP.Add(applied)
	return applied
}

// spend withdraws an expense from the bank. A failed withdrawal is logged and
// counted but does not stop the run.
func (s *Simulation) spend(name string, amount Money) {
	if res := s.bank.Withdraw(amount); !res.Ok() {
		s.failedExpenses++
		s.logger.Warn("expense failed",
			zap.String("flow", name),
			zap.String("date", s.clock.Now().String()),
			zap.String("amount", amount.StringFixed(2)),
			zap.String("cash", s.bank.Balance().StringFixed(2)),
		)
		return
	}
	s.expense = s.expense.Add(amount)
}

// SplitFlows separates incomes from expenses, keeping the relative order
// within each group. Incomes always run first on a tick.
func SplitFlows(flows []*Flow) (incomes, expenses []*Flow) {
	for _, f := range flows {
		if f.Kind.IsIncome() {
			incomes = append(incomes, f)
		} else {
			expenses = append(expenses, f)
		}
	}
	return incomes, expenses
}
