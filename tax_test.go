package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Tax Calculation Tests
//
// Figures use DefaultTaxConfig:
// - Personal Allowance: £12,571
// - Basic Rate 22% to £50,270
// - Higher Rate 40% to £150,000
// - Additional Rate 45% above
// - Allowance floor falls by £2 for every £1 above £100,000
// - NI (category A) 13.25% between £823.01 and £4,189 a month, 3.25% above

func annualInput(employment float64) TaxInput {
	in := NewTaxInput(NICategoryA)
	in.NonPAYEEmployment = M(employment)
	return in
}

// =============================================================================
// Income Tax Bands
// =============================================================================

func TestIncomeTax_Bands(t *testing.T) {
	c := DefaultTaxConfig()
	tests := []struct {
		income      float64
		expectedTax float64
		calculation string
	}{
		{0, 0, "no income"},
		{12_571, 0, "exactly at personal allowance"},
		{20_000, 1_634.38, "(20000 - 12571) × 0.22"},
		{60_000, 12_185.38, "37699 × 0.22 + (60000 - 50271) × 0.40"},
		{100_000, 28_185.38, "at taper threshold: 37699 × 0.22 + 49729 × 0.40"},
		{101_000, 29_025.38, "allowance tapered to 10571: 39699 × 0.22 + 50729 × 0.40"},
		{105_000, 32_385.38, "allowance tapered to 2571: 47699 × 0.22 + 54729 × 0.40"},
		{110_000, 34_951.00, "allowance gone at 110000: 50270 × 0.22 + 59729 × 0.40"},
		{130_000, 42_951.00, "allowance gone: 50270 × 0.22 + 79729 × 0.40"},
		{200_000, 73_450.55, "50270 × 0.22 + 99729 × 0.40 + 49999 × 0.45"},
	}
	for _, tc := range tests {
		t.Run(tc.calculation, func(t *testing.T) {
			out := CalculateIncomeTax(annualInput(tc.income), c)
			assertMoney(t, tc.expectedTax, out.Total(), tc.calculation)
		})
	}
}

func TestIncomeTax_PAYEWagesExcluded(t *testing.T) {
	in := NewTaxInput(NICategoryA)
	in.PAYEEmployment = M(80_000)

	out := CalculateIncomeTax(in, DefaultTaxConfig())
	assert.True(t, out.Total().IsZero(), "PAYE wages are taxed at source")
}

func TestIncomeTax_ContributionsReduceTaxableIncome(t *testing.T) {
	in := annualInput(20_000)
	in.Contributions = M(5_000)

	out := CalculateIncomeTax(in, DefaultTaxConfig())
	assertMoney(t, 15_000, out.TaxableIncome)
	assertMoney(t, 534.38, out.Total()) // (15000 - 12571) × 0.22
}

// =============================================================================
// Allowances
// =============================================================================

func TestIncomeTax_RentalAllowance(t *testing.T) {
	in := NewTaxInput(NICategoryA)
	in.Rental = M(20_000)

	out := CalculateIncomeTax(in, DefaultTaxConfig())
	assertMoney(t, 1_000, out.Allowances)
	assertMoney(t, 634.38, out.Total())
}

func TestIncomeTax_AllowancesNeverMakeARefund(t *testing.T) {
	in := NewTaxInput(NICategoryA)
	in.Rental = M(5_000)
	in.SelfEmployment = M(5_000)

	out := CalculateIncomeTax(in, DefaultTaxConfig())
	assertMoney(t, 2_000, out.Allowances)
	assert.True(t, out.Total().IsZero())
}

func TestIncomeTax_PersonalSavingsAllowance(t *testing.T) {
	c := DefaultTaxConfig()

	basic := annualInput(30_000)
	basic.Savings = M(500)
	out := CalculateIncomeTax(basic, c)
	assertMoney(t, 500, out.Allowances, "capped at savings income")
	assertMoney(t, 3_444.38, out.Total())

	higher := annualInput(60_000)
	higher.Savings = M(2_000)
	out = CalculateIncomeTax(higher, c)
	assertMoney(t, 500, out.Allowances, "higher rate payers get the smaller allowance")

	additional := annualInput(200_000)
	additional.Savings = M(2_000)
	out = CalculateIncomeTax(additional, c)
	assert.True(t, out.Allowances.IsZero(), "no allowance for additional rate payers")
}

func TestIncomeTax_StartingSavingsAllowance(t *testing.T) {
	in := NewTaxInput(NICategoryA)
	in.Savings = M(3_000)

	out := CalculateIncomeTax(in, DefaultTaxConfig())
	// personal savings allowance 1000 + starting allowance 3000
	assertMoney(t, 4_000, out.Allowances)
	assert.True(t, out.Total().IsZero())
}

// =============================================================================
// Capital Gains
// =============================================================================

func TestCapitalGainsTax(t *testing.T) {
	c := DefaultTaxConfig()

	t.Run("below allowance", func(t *testing.T) {
		in := annualInput(20_000)
		in.CapitalGains = M(10_000)
		assert.True(t, CalculateCapitalGainsTax(in, c).IsZero())
	})

	t.Run("basic rate", func(t *testing.T) {
		in := annualInput(20_000)
		in.CapitalGains = M(20_000)
		// (20000 - 12300) × 0.10
		assertMoney(t, 770, CalculateCapitalGainsTax(in, c))
	})

	t.Run("gain pushes into higher rate", func(t *testing.T) {
		in := annualInput(60_000)
		in.CapitalGains = M(20_000)
		// 60000 - 12571 + 7700 crosses 50270
		assertMoney(t, 2_156, CalculateCapitalGainsTax(in, c))
	})

	t.Run("residential gains use their own rate", func(t *testing.T) {
		in := annualInput(20_000)
		in.ResidentialGains = M(20_000)
		assertMoney(t, 1_386, CalculateCapitalGainsTax(in, c))
	})

	t.Run("allowance is used against residential gains first", func(t *testing.T) {
		in := annualInput(20_000)
		in.ResidentialGains = M(10_000)
		in.CapitalGains = M(10_000)
		// taxable 7700: residential part is 0, other part 7700 at 10%
		assertMoney(t, 770, CalculateCapitalGainsTax(in, c))
	})
}

// =============================================================================
// Dividends
// =============================================================================

func TestDividendTax(t *testing.T) {
	c := DefaultTaxConfig()
	tests := []struct {
		name      string
		income    float64
		dividends float64
		expected  float64
	}{
		{"inside allowance", 20_000, 2_000, 0},
		{"all in basic band", 20_000, 12_000, 875},
		{"straddles basic and higher", 45_000, 12_000, 5_270*0.0875 + 4_730*0.3375},
		{"additional rate payer", 200_000, 12_000, 3_935},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := annualInput(tc.income)
			in.Dividends = M(tc.dividends)
			it := CalculateIncomeTax(in, c)
			assertMoney(t, tc.expected, CalculateDividendTax(in, it, c))
		})
	}
}

// =============================================================================
// Settlement
// =============================================================================

func TestCalculateTax_Total(t *testing.T) {
	c := DefaultTaxConfig()
	in := annualInput(20_000)

	out := CalculateTax(in, c)
	assertMoney(t, 1_634.38, out.Income.Total())
	// (20000 - 9876.12) × 0.1325
	assertMoney(t, 1_341.41, out.NI)
	assertMoney(t, 2_975.79, out.Total())

	in.PAYETaxPaid = M(500)
	assertMoney(t, 2_475.79, CalculateTax(in, c).Total())

	in.PAYETaxPaid = M(10_000)
	assert.True(t, CalculateTax(in, c).Total().IsZero(), "withheld PAYE never produces a refund")
}

func TestCalculateTax_TypicalSalaryInExpectedRange(t *testing.T) {
	// £45k salary with 5% pension contribution: income tax + NI should be
	// somewhere between £8k and £12k
	in := annualInput(45_000)
	in.Contributions = M(2_250)

	total := CalculateTax(in, DefaultTaxConfig()).Total().InexactFloat64()
	assert.Greater(t, total, 8_000.0)
	assert.Less(t, total, 12_000.0)
}

func TestPAYE_MatchesAnnualCalculation(t *testing.T) {
	// Twelve monthly PAYE deductions should land within a few pounds of the
	// annual calculation on the same salary
	c := DefaultTaxConfig()
	for _, salary := range []float64{20_000, 45_000, 80_000} {
		monthly := M(salary).Div(twelve)
		contribution := monthly.Mul(M(0.05))
		perMonth := CalculatePAYE(monthly, contribution, NICategoryA, c).Total()

		in := annualInput(salary)
		in.Contributions = M(salary * 0.05)
		annual := CalculateTax(in, c).Total()

		assert.InDelta(t, annual.InexactFloat64(), perMonth.Mul(twelve).InexactFloat64(), 10,
			"salary %.0f", salary)
	}
	in := annualInput(80_000)
	in.Contributions = M(4_000)
	assertMoney(t, 24_903.59, CalculateTax(in, c).Total())
}

func TestPAYE_HasNoAllowances(t *testing.T) {
	out := CalculatePAYEIncomeTax(M(3_000), M(0), DefaultTaxConfig())
	assert.True(t, out.Allowances.IsZero())
	// (3000 - 12571/12) × 0.22
	assertMoney(t, 429.53, out.Total())
}

// =============================================================================
// Inflation
// =============================================================================

func TestApplyInflation_ScalesBandsNotRates(t *testing.T) {
	c := DefaultTaxConfig()
	inflated := c.ApplyInflation(0.10)

	assertMoney(t, 13_828.10, inflated.PersonalAllowance)
	assertMoney(t, 55_297, inflated.BasicIncomeTopBand)
	assertMoney(t, 13_530, inflated.CapitalGainsAllowance)
	assertMoney(t, 905.311, inflated.NIBand1)

	assert.True(t, inflated.BasicIncomeRate.Equal(c.BasicIncomeRate))
	assert.True(t, inflated.HigherDividendRate.Equal(c.HigherDividendRate))
	assert.True(t, inflated.NIBand3Rate.Equal(c.NIBand3Rate))
	assert.True(t, inflated.TaperValue.Equal(c.TaperValue), "taper ratio is not a threshold")

	// original is untouched
	assertMoney(t, 12_571, c.PersonalAllowance)
}
