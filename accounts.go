package main

import (
	"cloud.google.com/go/civil"
)

// BankAccount is the household's cash balance. Every flow credits or debits it.
type BankAccount struct {
	balance Money
}

func NewBankAccount(start Money) *BankAccount {
	return &BankAccount{balance: start}
}

func (b *BankAccount) Balance() Money { return b.balance }

func (b *BankAccount) Deposit(amount Money) TransferResult {
	b.balance = b.balance.Add(amount)
	return TransferSuccess
}

func (b *BankAccount) Withdraw(amount Money) TransferResult {
	if amount.GreaterThan(b.balance) {
		return TransferFailure
	}
	b.balance = b.balance.Sub(amount)
	return TransferSuccess
}

// Liquidate is the same as Withdraw: cash has nothing to sell.
func (b *BankAccount) Liquidate(amount Money) TransferResult {
	return b.Withdraw(amount)
}

func (b *BankAccount) zero() { b.balance = zero }

// strategyAccount is the transfer plumbing shared by the investment wrappers
type strategyAccount struct {
	strat InvestmentStrategy
}

func (a *strategyAccount) Deposit(amount Money) TransferResult {
	if err := a.strat.DepositCash(amount); err != nil {
		return TransferFailure
	}
	return TransferSuccess
}

func (a *strategyAccount) Withdraw(amount Money) TransferResult {
	if err := a.strat.WithdrawCash(amount); err != nil {
		return TransferFailure
	}
	return TransferSuccess
}

func (a *strategyAccount) Liquidate(amount Money) TransferResult {
	if err := a.strat.WithdrawCashWithLiquidation(amount); err != nil {
		return TransferFailure
	}
	return TransferSuccess
}

func (a *strategyAccount) LiquidationValue() Money { return a.strat.LiquidationValue() }

func (a *strategyAccount) Check()  { a.strat.Check() }
func (a *strategyAccount) Finish() { a.strat.Finish() }
func (a *strategyAccount) zero()   { a.strat.Zero() }

// Rebalance only trades when there is something to trade.
func (a *strategyAccount) Rebalance() {
	if a.strat.LiquidationValue().IsPositive() {
		a.strat.Rebalance()
	}
}

// ISA is the tax-free wrapper with an annual deposit cap
type ISA struct {
	strategyAccount
	currentTaxYearDeposits Money
}

func NewISA(strat InvestmentStrategy) *ISA {
	return &ISA{strategyAccount: strategyAccount{strat: strat}, currentTaxYearDeposits: zero}
}

// DepositWrapper deposits what fits under this year's cap and returns the
// applied amount plus the remainder the caller must place elsewhere.
func (i *ISA) DepositWrapper(amount Money) (applied, remainder Money) {
	applied, remainder = AllocateISA(amount, ISAAnnualDepositThreshold, i.currentTaxYearDeposits)
	if applied.IsPositive() {
		i.Deposit(applied)
		i.currentTaxYearDeposits = i.currentTaxYearDeposits.Add(applied)
	}
	return applied, remainder
}

func (i *ISA) TaxYearEnd() {
	i.currentTaxYearDeposits = zero
}

func (i *ISA) CurrentTaxYearDeposits() Money { return i.currentTaxYearDeposits }

// SIPP is the pension wrapper. Money goes in under two caps and never comes
// out directly.
type SIPP struct {
	strategyAccount
	lifetimeContributions       Money
	currentTaxYearContributions Money
}

func NewSIPP(strat InvestmentStrategy, lifetimeContributions Money) *SIPP {
	return &SIPP{
		strategyAccount:             strategyAccount{strat: strat},
		lifetimeContributions:       lifetimeContributions,
		currentTaxYearContributions: zero,
	}
}

// DepositWrapper contributes what fits under both caps and returns the remainder.
func (s *SIPP) DepositWrapper(amount Money) (applied, remainder Money) {
	applied, remainder = AllocateSIPP(amount,
		SIPPAnnualContributionThreshold, SIPPLifetimeContributionThreshold,
		s.currentTaxYearContributions, s.lifetimeContributions)
	if applied.IsPositive() {
		s.Deposit(applied)
		s.currentTaxYearContributions = s.currentTaxYearContributions.Add(applied)
		s.lifetimeContributions = s.lifetimeContributions.Add(applied)
	}
	return applied, remainder
}

func (s *SIPP) Withdraw(Money) TransferResult  { return TransferFailure }
func (s *SIPP) Liquidate(Money) TransferResult { return TransferFailure }

func (s *SIPP) TaxYearEnd() {
	s.currentTaxYearContributions = zero
}

func (s *SIPP) LifetimeContributions() Money { return s.lifetimeContributions }

// GIA is the taxable wrapper. Gains and dividends are rebuilt from the
// strategy's history at settlement time.
type GIA struct {
	strategyAccount
}

func NewGIA(strat InvestmentStrategy) *GIA {
	return &GIA{strategyAccount: strategyAccount{strat: strat}}
}

// CapitalGains realised by sales in (periodStart, date]
func (g *GIA) CapitalGains(date, periodStart civil.Date) Money {
	allTrades := g.strat.TradesBetween(civil.Date{}, date)
	return CalculateCapitalGains(allTrades, periodStart, date)
}

// Dividends received in (periodStart, date]
func (g *GIA) Dividends(date, periodStart civil.Date) Money {
	return SumDividends(g.strat.DividendsBetween(periodStart, date))
}
