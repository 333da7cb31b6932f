package main

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/suite"
)

// SimulationSuite drives small hand-built households through the daily loop.
type SimulationSuite struct {
	suite.Suite
	ctx context.Context
}

func TestSimulationSuite(t *testing.T) {
	suite.Run(t, new(SimulationSuite))
}

func (s *SimulationSuite) SetupTest() {
	s.ctx = context.Background()
}

type simFixture struct {
	start     civil.Date
	days      int
	cash      float64
	emergency float64
	flows     []*Flow
	mortgage  *MortgageTerms
	// strategy overrides the ISA/SIPP/GIA strategy when set
	strategy func(name string, clock *Clock, source DataSource) InvestmentStrategy
}

// build creates a simulation whose data source has zero inflation and a 3%
// reference rate on every date
func (s *SimulationSuite) build(f simFixture) *Simulation {
	clock := NewClock(f.start, f.days)
	source := NewHashMapSource().
		WithInflation(Constant(clock.Dates(), 0)).
		WithRates(Constant(clock.Dates(), 0.03))
	strategy := f.strategy
	if strategy == nil {
		strategy = func(_ string, clock *Clock, source DataSource) InvestmentStrategy {
			return NewSimulatedBroker(clock, source, nil)
		}
	}
	return NewSimulation(SimulationParams{
		Name:             "test",
		RunID:            "test",
		Clock:            clock,
		Source:           source,
		ISA:              strategy("isa", clock, source),
		SIPP:             strategy("sipp", clock, source),
		GIA:              strategy("gia", clock, source),
		StartingCash:     M(f.cash),
		EmergencyMinimum: M(f.emergency),
		NI:               NICategoryA,
		TaxConfig:        DefaultTaxConfig(),
		Flows:            f.flows,
		Mortgage:         f.mortgage,
	})
}

func (s *SimulationSuite) TestEmptyHouseholdStaysAtZero() {
	sim := s.build(simFixture{start: date(2025, 5, 1), days: 60})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.True(result.Final.Total().IsZero())
	s.Equal(SimReady, result.State)
	s.Len(result.Cash, 2, "tracked on 1 May and 1 June")
}

func (s *SimulationSuite) TestWageAndPercentExpense() {
	sim := s.build(simFixture{
		start:     date(2025, 5, 1),
		days:      1,
		emergency: 1_000_000,
		flows: []*Flow{
			// expense listed first: incomes still run before it
			{Name: "spending", Kind: PercentExpenseFlow, Pct: M(0.25), Schedule: Daily()},
			{Name: "salary", Kind: WageFlow, Value: M(4_000), Pct: M(0), Schedule: Daily()},
		},
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	assertMoney(s.T(), 3_000, sim.Bank().Balance())
	assertMoney(s.T(), 3_000, result.Final.Total())
	s.Zero(result.FailedExpenses)
}

func (s *SimulationSuite) TestPercentExpenseReadsNetWage() {
	sim := s.build(simFixture{
		start:     date(2025, 5, 1),
		days:      1,
		emergency: 1_000_000,
		flows: []*Flow{
			{Name: "salary", Kind: WageFlow, Value: M(4_000), Pct: M(0.1), Schedule: Daily()},
			{Name: "spending", Kind: PercentExpenseFlow, Pct: M(0.25), Schedule: Daily()},
		},
	})

	_, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	// 25% of the 3600 that reached the bank
	assertMoney(s.T(), 2_700, sim.Bank().Balance())
	assertMoney(s.T(), 400, sim.SIPP().LiquidationValue())
}

func (s *SimulationSuite) TestPercentExpenseWithoutIncomeFails() {
	sim := s.build(simFixture{
		start: date(2025, 5, 1),
		days:  5,
		flows: []*Flow{
			{Name: "spending", Kind: PercentExpenseFlow, Pct: M(0.25), Schedule: Daily()},
		},
	})

	_, err := sim.Run(s.ctx)
	s.ErrorIs(err, ErrNoIncomeThisTick)
}

func (s *SimulationSuite) TestFailedExpenseIsCountedNotFatal() {
	sim := s.build(simFixture{
		start: date(2025, 5, 1),
		days:  3,
		cash:  100,
		flows: []*Flow{
			{Name: "rent", Kind: ExpenseFlow, Value: M(80), Schedule: Daily()},
		},
		emergency: 1_000,
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, result.FailedExpenses)
	assertMoney(s.T(), 20, sim.Bank().Balance())
}

func (s *SimulationSuite) TestPensionContributionFromWage() {
	sim := s.build(simFixture{
		start:     date(2025, 5, 1),
		days:      1,
		emergency: 1_000_000,
		flows: []*Flow{
			{Name: "salary", Kind: WageFlow, Value: M(4_000), Pct: M(0.1), Schedule: Daily()},
		},
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	assertMoney(s.T(), 3_600, sim.Bank().Balance())
	assertMoney(s.T(), 400, sim.SIPP().LiquidationValue())
	assertMoney(s.T(), 400, result.PaidIntoSIPP)
}

func (s *SimulationSuite) TestPAYEWageDeductsAtSource() {
	sim := s.build(simFixture{
		start:     date(2025, 5, 1),
		days:      1,
		emergency: 1_000_000,
		flows: []*Flow{
			{Name: "salary", Kind: PAYEWageFlow, Value: M(3_750), Pct: M(0.05), Schedule: Daily()},
		},
	})

	_, err := sim.Run(s.ctx)
	s.Require().NoError(err)

	paye := CalculatePAYE(M(3_750), M(187.5), NICategoryA, DefaultTaxConfig()).Total()
	assertMoney(s.T(), 3_750-187.5-paye.InexactFloat64(), sim.Bank().Balance())
	assertMoney(s.T(), 187.5, sim.SIPP().LiquidationValue())
}

func (s *SimulationSuite) TestCashAboveEmergencyMinimumSweptToISAThenGIA() {
	sim := s.build(simFixture{
		start:     date(2025, 5, 1),
		days:      1,
		cash:      35_000,
		emergency: 5_000,
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	assertMoney(s.T(), 5_000, sim.Bank().Balance())
	assertMoney(s.T(), 20_000, sim.ISA().LiquidationValue())
	assertMoney(s.T(), 10_000, sim.GIA().LiquidationValue())
	assertMoney(s.T(), 20_000, result.PaidIntoISA)
	assertMoney(s.T(), 10_000, result.PaidIntoGIA)
}

func (s *SimulationSuite) TestTaxPaidFromBank() {
	sim := s.build(simFixture{
		start:     date(2025, 3, 31),
		days:      2,
		emergency: 1_000_000,
		flows: []*Flow{
			{Name: "bonus", Kind: WageFlow, Value: M(20_000), Pct: M(0), Schedule: OnDate(date(2025, 3, 31))},
		},
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(result.Annual, 1)

	due := CalculateTax(annualInput(20_000), DefaultTaxConfig()).Total()
	assertMoney(s.T(), 20_000-due.InexactFloat64(), sim.Bank().Balance())
	assertMoney(s.T(), due.InexactFloat64(), result.Annual[0].TaxPaid)
	assertMoney(s.T(), 20_000, result.Annual[0].GrossIncome)
}

func (s *SimulationSuite) TestTaxCascadeUsesISAAlone() {
	sim := s.build(simFixture{
		start: date(2025, 3, 31),
		days:  2,
		flows: []*Flow{
			{Name: "bonus", Kind: WageFlow, Value: M(20_000), Pct: M(0), Schedule: OnDate(date(2025, 3, 31))},
		},
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(SimReady, result.State)

	due := CalculateTax(annualInput(20_000), DefaultTaxConfig()).Total()
	assertMoney(s.T(), 0, sim.Bank().Balance())
	assertMoney(s.T(), 20_000-due.InexactFloat64(), sim.ISA().LiquidationValue())
	assertMoney(s.T(), 0, sim.GIA().LiquidationValue())
}

func (s *SimulationSuite) TestTaxCascadeUsesISAThenGIA() {
	sim := s.build(simFixture{
		start: date(2025, 3, 31),
		days:  2,
		flows: []*Flow{
			{Name: "bonus", Kind: WageFlow, Value: M(100_000), Pct: M(0), Schedule: OnDate(date(2025, 3, 31))},
		},
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(SimReady, result.State)

	due := CalculateTax(annualInput(100_000), DefaultTaxConfig()).Total()
	s.Require().True(due.GreaterThan(M(20_000)), "bill is bigger than the ISA")
	assertMoney(s.T(), 0, sim.ISA().LiquidationValue())
	assertMoney(s.T(), 100_000-due.InexactFloat64(), sim.GIA().LiquidationValue())
}

func (s *SimulationSuite) TestTaxCascadeCombinesBankAndISA() {
	sim := s.build(simFixture{
		start:     date(2025, 3, 31),
		days:      2,
		emergency: 1_000_000,
		flows: []*Flow{
			{Name: "bonus", Kind: WageFlow, Value: M(20_000), Pct: M(0), Schedule: OnDate(date(2025, 3, 31))},
			{Name: "car", Kind: ExpenseFlow, Value: M(18_000), Schedule: OnDate(date(2025, 3, 31))},
		},
	})
	sim.ISA().Deposit(M(2_000))

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(SimReady, result.State, "neither covers the bill alone but together they do")
	s.Require().Len(result.Annual, 1)

	due := CalculateTax(annualInput(20_000), DefaultTaxConfig()).Total()
	assertMoney(s.T(), 2_975.79, due)
	assertMoney(s.T(), 0, sim.Bank().Balance())
	assertMoney(s.T(), 4_000-due.InexactFloat64(), sim.ISA().LiquidationValue())
	assertMoney(s.T(), due.InexactFloat64(), result.Annual[0].TaxPaid)
}

// stuckStrategy holds cash but refuses to sell anything
type stuckStrategy struct {
	*SimulatedBroker
}

func (s *stuckStrategy) WithdrawCashWithLiquidation(Money) error {
	return ErrInsufficientFunds
}

func (s *SimulationSuite) TestTaxCascadeFallsThroughWhenISACannotSell() {
	sim := s.build(simFixture{
		start:     date(2025, 3, 31),
		days:      2,
		emergency: 1_000_000,
		flows: []*Flow{
			{Name: "bonus", Kind: WageFlow, Value: M(20_000), Pct: M(0), Schedule: OnDate(date(2025, 3, 31))},
			{Name: "car", Kind: ExpenseFlow, Value: M(20_000), Schedule: OnDate(date(2025, 3, 31))},
		},
		strategy: func(name string, clock *Clock, source DataSource) InvestmentStrategy {
			broker := NewSimulatedBroker(clock, source, nil)
			if name == "isa" {
				return &stuckStrategy{SimulatedBroker: broker}
			}
			return broker
		},
	})
	sim.ISA().Deposit(M(5_000))
	sim.GIA().Deposit(M(5_000))

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(SimReady, result.State)

	due := CalculateTax(annualInput(20_000), DefaultTaxConfig()).Total()
	assertMoney(s.T(), 5_000, sim.ISA().LiquidationValue(), "ISA could not sell")
	assertMoney(s.T(), 5_000-due.InexactFloat64(), sim.GIA().LiquidationValue())
}

func (s *SimulationSuite) TestUnrecoverableZeroesEverything() {
	sim := s.build(simFixture{
		start:     date(2025, 3, 31),
		days:      3,
		emergency: 1_000_000,
		flows: []*Flow{
			{Name: "bonus", Kind: WageFlow, Value: M(20_000), Pct: M(0.1), Schedule: OnDate(date(2025, 3, 31))},
			{Name: "late bonus", Kind: WageFlow, Value: M(5_000), Pct: M(0), Schedule: OnDate(date(2025, 4, 2))},
			{Name: "car", Kind: ExpenseFlow, Value: M(18_000), Schedule: OnDate(date(2025, 3, 31))},
		},
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.True(result.Unrecoverable())
	s.Equal(date(2025, 4, 1), result.FailedOn)
	s.True(result.Final.Total().IsZero(), "bank, ISA, SIPP and GIA are all wiped")
	s.True(sim.SIPP().LiquidationValue().IsZero())
	// the ticks after failure change nothing
	s.True(sim.Bank().Balance().IsZero())
	s.Empty(result.Annual, "an unpaid bill is not recorded as a tax year")
}

func (s *SimulationSuite) TestMissingInflationStopsTaxSettlement() {
	clock := NewClock(date(2025, 3, 31), 3)
	sim := NewSimulation(SimulationParams{
		Clock:     clock,
		Source:    NewHashMapSource(),
		ISA:       NewSimulatedBroker(clock, NewHashMapSource(), nil),
		SIPP:      NewSimulatedBroker(clock, NewHashMapSource(), nil),
		GIA:       NewSimulatedBroker(clock, NewHashMapSource(), nil),
		TaxConfig: DefaultTaxConfig(),
	})

	_, err := sim.Run(s.ctx)
	s.ErrorIs(err, ErrMissingInflation)
}

func (s *SimulationSuite) TestMortgagePaymentCountsAsExpense() {
	sim := s.build(simFixture{
		start:     date(2025, 5, 1),
		days:      30,
		cash:      5_000,
		emergency: 1_000_000,
		mortgage: &MortgageTerms{
			Principal: M(100_000),
			Rate:      0.05,
			TermYears: 25,
			FixYears:  2,
		},
	})

	result, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(result.Events, 1)
	s.Equal(PaymentSuccess, result.Events[0].Kind)
	assertMoney(s.T(), 5_000-750.00, sim.Bank().Balance())
	assertMoney(s.T(), 99_666.67, result.Final.Mortgage)
}

func (s *SimulationSuite) TestContextCancelStopsRun() {
	sim := s.build(simFixture{start: date(2025, 5, 1), days: 30})
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := sim.Run(ctx)
	s.ErrorIs(err, context.Canceled)
}

// recordingStrategy logs lifecycle calls so the tick order can be checked
type recordingStrategy struct {
	*SimulatedBroker
	name string
	log  *[]string
}

func (r *recordingStrategy) Check() {
	*r.log = append(*r.log, r.name+".Check")
	r.SimulatedBroker.Check()
}

func (r *recordingStrategy) Rebalance() {
	*r.log = append(*r.log, r.name+".Rebalance")
}

func (r *recordingStrategy) Finish() {
	*r.log = append(*r.log, r.name+".Finish")
}

func (s *SimulationSuite) TestLifecycleHookOrder() {
	var log []string
	sim := s.build(simFixture{
		start: date(2025, 5, 2),
		days:  1,
		strategy: func(name string, clock *Clock, source DataSource) InvestmentStrategy {
			return &recordingStrategy{SimulatedBroker: NewSimulatedBroker(clock, source, nil), name: name, log: &log}
		},
	})
	// give each wrapper a balance so Rebalance runs
	sim.ISA().Deposit(M(100))
	sim.SIPP().Deposit(M(100))
	sim.GIA().Deposit(M(100))

	_, err := sim.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{
		"isa.Check", "sipp.Check", "gia.Check",
		"isa.Rebalance", "sipp.Rebalance", "gia.Rebalance",
		"isa.Finish", "sipp.Finish", "gia.Finish",
	}, log)
}

func (s *SimulationSuite) TestRunsAreIndependent() {
	// two simulations built from the same fixture never share state
	flows := func() []*Flow {
		return []*Flow{{Name: "salary", Kind: WageFlow, Value: M(1_000), Pct: M(0), Schedule: Daily()}}
	}
	a := s.build(simFixture{start: date(2025, 5, 1), days: 10, emergency: 1e9, flows: flows()})
	b := s.build(simFixture{start: date(2025, 5, 1), days: 5, emergency: 1e9, flows: flows()})

	_, err := a.Run(s.ctx)
	s.Require().NoError(err)
	_, err = b.Run(s.ctx)
	s.Require().NoError(err)

	assertMoney(s.T(), 10_000, a.Bank().Balance())
	assertMoney(s.T(), 5_000, b.Bank().Balance())
}
