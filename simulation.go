package main

import (
	"context"
	"fmt"
	"math"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
)

// SimulationParams is everything needed to build one run
type SimulationParams struct {
	Name                  string
	RunID                 string
	Clock                 *Clock
	Source                DataSource
	ISA                   InvestmentStrategy
	SIPP                  InvestmentStrategy
	GIA                   InvestmentStrategy
	StartingCash          Money
	EmergencyMinimum      Money
	LifetimeContributions Money
	NI                    NICategory
	TaxConfig             TaxConfig
	Flows                 []*Flow
	Mortgage              *MortgageTerms // nil when the household has no mortgage
	Logger                *zap.Logger
}

// Simulation owns all state for a single run. Nothing is shared between runs.
type Simulation struct {
	name   string
	runID  string
	logger *zap.Logger
	clock  *Clock
	source DataSource

	bank     *BankAccount
	isa      *ISA
	sipp     *SIPP
	gia      *GIA
	mortgage *AmortizingMortgage

	incomes  []*Flow
	expenses []*Flow

	taxConfig        TaxConfig
	nic              NICategory
	emergencyMinimum Money
	taxSchedule      Schedule
	trackerSchedule  Schedule

	state    SimState
	failedOn civil.Date

	// Tax-year accumulators, reset at each settlement
	year    TaxInput
	gross   Money
	net     Money
	expense Money

	tickIncome     Money
	failedExpenses int

	paidIntoISA  Money
	paidIntoGIA  Money
	paidIntoSIPP Money

	isaSnapshots  []Snapshot
	giaSnapshots  []Snapshot
	sippSnapshots []Snapshot
	cash          []Money
	annual        []AnnualFrame
}

// NewSimulation wires the accounts, flows and optional mortgage for a run
func NewSimulation(p SimulationParams) *Simulation {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sim").With(zap.String("run_id", p.RunID))

	incomes, expenses := SplitFlows(p.Flows)
	s := &Simulation{
		name:             p.Name,
		runID:            p.RunID,
		logger:           logger,
		clock:            p.Clock,
		source:           p.Source,
		bank:             NewBankAccount(p.StartingCash),
		isa:              NewISA(p.ISA),
		sipp:             NewSIPP(p.SIPP, p.LifetimeContributions),
		gia:              NewGIA(p.GIA),
		incomes:          incomes,
		expenses:         expenses,
		taxConfig:        p.TaxConfig,
		nic:              p.NI,
		emergencyMinimum: p.EmergencyMinimum,
		taxSchedule:      TaxYearSchedule(),
		trackerSchedule:  MonthStart(),
		state:            SimReady,
		year:             NewTaxInput(p.NI),
		gross:            zero,
		net:              zero,
		expense:          zero,
		tickIncome:       zero,
		paidIntoISA:      zero,
		paidIntoGIA:      zero,
		paidIntoSIPP:     zero,
	}
	if p.Mortgage != nil && p.Mortgage.Principal.IsPositive() {
		s.mortgage = NewAmortizingMortgage(p.Clock, p.Source, *p.Mortgage, logger.Named("mortgage"))
	}
	return s
}

func (s *Simulation) State() SimState { return s.state }
func (s *Simulation) Bank() *BankAccount { return s.bank }
func (s *Simulation) ISA() *ISA { return s.isa }
func (s *Simulation) SIPP() *SIPP { return s.sipp }
func (s *Simulation) GIA() *GIA { return s.gia }
func (s *Simulation) Mortgage() *AmortizingMortgage { return s.mortgage }
func (s *Simulation) TaxConfig() TaxConfig { return s.taxConfig }
func (s *Simulation) FailedExpenses() int { return s.failedExpenses }

// TotalValue is cash plus the liquidation value of every wrapper
func (s *Simulation) TotalValue() Money {
	return s.balances().Total()
}

func (s *Simulation) balances() Balances {
	b := Balances{
		Cash:     s.bank.Balance(),
		ISA:      s.isa.LiquidationValue(),
		GIA:      s.gia.LiquidationValue(),
		SIPP:     s.sipp.LiquidationValue(),
		Mortgage: zero,
	}
	if s.mortgage != nil {
		b.Mortgage = s.mortgage.Balance()
	}
	return b
}

// Run ticks the clock to the end, stopping early on a hard error or when ctx
// is cancelled. The result is valid even when an error is returned.
func (s *Simulation) Run(ctx context.Context) (SimulationResult, error) {
	for s.clock.HasNext() {
		if err := ctx.Err(); err != nil {
			return s.Result(), err
		}
		s.clock.Tick()
		if err := s.Update(); err != nil {
			s.logger.Error("run aborted", zap.String("date", s.clock.Now().String()), zap.Error(err))
			return s.Result(), err
		}
	}
	return s.Result(), nil
}

// Update advances the household by one day. An Unrecoverable simulation
// does nothing.
func (s *Simulation) Update() error {
	if s.state == SimUnrecoverable {
		return nil
	}
	today := s.clock.Now()
	s.tickIncome = zero

	s.isa.Check()
	s.sipp.Check()
	s.gia.Check()

	if s.trackerSchedule.Check(today) {
		s.track(today)
	}

	s.rebalanceCash()

	if s.taxSchedule.Check(today) {
		if err := s.settleTax(today); err != nil {
			return err
		}
		if s.state == SimUnrecoverable {
			return nil
		}
	}

	s.isa.Rebalance()
	s.sipp.Rebalance()
	s.gia.Rebalance()

	for _, f := range s.incomes {
		if err := f.Check(s); err != nil {
			return err
		}
	}
	if s.mortgage != nil {
		paid, err := s.mortgage.Pay(s.bank)
		if err != nil {
			return err
		}
		s.expense = s.expense.Add(paid)
	}
	for _, f := range s.expenses {
		if err := f.Check(s); err != nil {
			return err
		}
	}

	s.rebalanceCash()

	s.isa.Finish()
	s.sipp.Finish()
	s.gia.Finish()
	return nil
}

// recordIncome adds to the tax-year totals. Today's income, which percentage
// expenses are taken from, counts what reached the bank.
func (s *Simulation) recordIncome(gross, net Money) {
	s.tickIncome = s.tickIncome.Add(net)
	s.gross = s.gross.Add(gross)
	s.net = s.net.Add(net)
}

// rebalanceCash moves cash above the emergency minimum into the ISA, and
// whatever the ISA cannot take this year into the GIA.
func (s *Simulation) rebalanceCash() {
	excess := s.bank.Balance().Sub(s.emergencyMinimum)
	if !excess.IsPositive() {
		return
	}
	applied, remainder := AllocateISA(excess, ISAAnnualDepositThreshold, s.isa.CurrentTaxYearDeposits())
	if applied.IsPositive() && s.bank.Withdraw(applied).Ok() {
		s.isa.DepositWrapper(applied)
		s.paidIntoISA = s.paidIntoISA.Add(applied)
	}
	if remainder.IsPositive() && Transfer(s.bank, s.gia, remainder).Ok() {
		s.paidIntoGIA = s.paidIntoGIA.Add(remainder)
	}
}

// annualiseMonthly compounds a monthly rate over a year
func annualiseMonthly(monthly float64) float64 {
	return math.Pow(1+monthly, 12) - 1
}

// settleTax inflates the tax bands, computes the year's liability and
// collects it. A liability nothing can cover makes the run Unrecoverable.
func (s *Simulation) settleTax(today civil.Date) error {
	monthly, ok := s.source.Inflation(today)
	if !ok {
		return fmt.Errorf("tax settlement on %s: %w", today, ErrMissingInflation)
	}
	s.taxConfig = s.taxConfig.ApplyInflation(annualiseMonthly(monthly))

	periodStart, _ := s.taxSchedule.LastPeriod(today)
	in := s.year
	in.NI = s.nic
	in.CapitalGains = s.gia.CapitalGains(today, periodStart)
	in.Dividends = s.gia.Dividends(today, periodStart)

	out := CalculateTax(in, s.taxConfig)
	due := out.Total()
	s.logger.Debug("tax settled",
		zap.String("date", today.String()),
		zap.String("income_tax", out.Income.Total().StringFixed(2)),
		zap.String("cgt", out.CapitalGains.StringFixed(2)),
		zap.String("ni", out.NI.StringFixed(2)),
		zap.String("dividend", out.Dividend.StringFixed(2)),
		zap.String("paye_paid", out.PAYEPaid.StringFixed(2)),
		zap.String("due", due.StringFixed(2)),
	)

	if due.IsPositive() {
		s.collectTax(today, due)
		if s.state == SimUnrecoverable {
			return nil
		}
	}
	s.pushFrame(today, in.PAYETaxPaid.Add(due))
	s.resetYear()
	return nil
}

// collectTax takes due from the bank. When the bank is short, its cash still
// goes towards the bill and the shortfall is raised from the ISA alone, then
// the ISA and GIA together. The run fails only when all three fall short.
func (s *Simulation) collectTax(today civil.Date, due Money) {
	cash := s.bank.Balance()
	if s.bank.Withdraw(due).Ok() {
		return
	}
	shortfall := due.Sub(cash)
	s.logger.Warn("bank cannot cover tax, liquidating investments",
		zap.String("date", today.String()),
		zap.String("due", due.StringFixed(2)),
		zap.String("cash", cash.StringFixed(2)),
		zap.String("shortfall", shortfall.StringFixed(2)),
	)

	isaValue := s.isa.LiquidationValue()
	if cash.Add(isaValue).Add(s.gia.LiquidationValue()).LessThan(due) {
		s.fail(today, due)
		return
	}
	if s.liquidateShortfall(shortfall, isaValue) && s.bank.Withdraw(cash).Ok() {
		return
	}
	s.fail(today, due)
}

// liquidateShortfall raises shortfall from the ISA alone when it can. When
// the ISA is too small, or refuses to sell, the GIA covers what is left.
func (s *Simulation) liquidateShortfall(shortfall, isaValue Money) bool {
	if isaValue.GreaterThanOrEqual(shortfall) && s.isa.Liquidate(shortfall).Ok() {
		return true
	}
	fromISA := minMoney(isaValue, shortfall)
	if fromISA.Equal(shortfall) || (fromISA.IsPositive() && !s.isa.Liquidate(fromISA).Ok()) {
		fromISA = zero
	}
	fromGIA := shortfall.Sub(fromISA)
	return !fromGIA.IsPositive() || s.gia.Liquidate(fromGIA).Ok()
}

// fail moves the run into the terminal state and zeroes every account
func (s *Simulation) fail(today civil.Date, due Money) {
	s.state = SimUnrecoverable
	s.failedOn = today
	s.bank.zero()
	s.isa.zero()
	s.sipp.zero()
	s.gia.zero()
	s.logger.Error("tax liability exceeds all liquid assets",
		zap.String("date", today.String()),
		zap.String("due", due.StringFixed(2)),
	)
}

func (s *Simulation) pushFrame(today civil.Date, taxPaid Money) {
	b := s.balances()
	s.annual = append(s.annual, AnnualFrame{
		Date:              today,
		ISA:               b.ISA,
		GIA:               b.GIA,
		SIPP:              b.SIPP,
		Cash:              b.Cash,
		GrossIncome:       s.gross,
		NetIncome:         s.net,
		Expense:           s.expense,
		TaxPaid:           taxPaid,
		SIPPContributions: s.year.Contributions,
	})
}

func (s *Simulation) resetYear() {
	s.year = NewTaxInput(s.nic)
	s.gross = zero
	s.net = zero
	s.expense = zero
	s.isa.TaxYearEnd()
	s.sipp.TaxYearEnd()
}

// track records the monthly wrapper snapshots and cash balance
func (s *Simulation) track(today civil.Date) {
	inflation, _ := s.source.Inflation(today)
	s.isaSnapshots = append(s.isaSnapshots, Snapshot{Date: today, Value: s.isa.LiquidationValue(), NetCashFlow: s.paidIntoISA, Inflation: inflation})
	s.giaSnapshots = append(s.giaSnapshots, Snapshot{Date: today, Value: s.gia.LiquidationValue(), NetCashFlow: s.paidIntoGIA, Inflation: inflation})
	s.sippSnapshots = append(s.sippSnapshots, Snapshot{Date: today, Value: s.sipp.LiquidationValue(), NetCashFlow: s.paidIntoSIPP, Inflation: inflation})
	s.cash = append(s.cash, s.bank.Balance())
}

// Result collects everything recorded so far
func (s *Simulation) Result() SimulationResult {
	r := SimulationResult{
		RunID:         s.runID,
		Name:          s.name,
		Start:         s.clock.Now(),
		End:           s.clock.Now(),
		State:         s.state,
		FailedOn:      s.failedOn,
		Final:         s.balances(),
		PaidIntoISA:   s.paidIntoISA,
		PaidIntoGIA:   s.paidIntoGIA,
		PaidIntoSIPP:  s.paidIntoSIPP,
		ISASnapshots:  s.isaSnapshots,
		GIASnapshots:  s.giaSnapshots,
		SIPPSnapshots: s.sippSnapshots,
		Cash:          s.cash,
		Annual:        s.annual,

		FailedExpenses: s.failedExpenses,
	}
	if dates := s.clock.Dates(); len(dates) > 0 {
		r.Start = dates[0]
	}
	if s.mortgage != nil {
		r.Events = s.mortgage.Events()
	}
	return r
}
