package main

// TaxConfig holds every UK band threshold and rate for one tax year.
// Bands are annual except the NI bands, which are monthly.
type TaxConfig struct {
	BasicIncomeRate      Money `yaml:"basic_income_rate" json:"basic_income_rate"`
	HigherIncomeRate     Money `yaml:"higher_income_rate" json:"higher_income_rate"`
	AdditionalIncomeRate Money `yaml:"additional_income_rate" json:"additional_income_rate"`

	BasicDividendRate      Money `yaml:"basic_dividend_rate" json:"basic_dividend_rate"`
	HigherDividendRate     Money `yaml:"higher_dividend_rate" json:"higher_dividend_rate"`
	AdditionalDividendRate Money `yaml:"additional_dividend_rate" json:"additional_dividend_rate"`

	BasicResidentialCapitalRate  Money `yaml:"basic_residential_capital_rate" json:"basic_residential_capital_rate"`
	HigherResidentialCapitalRate Money `yaml:"higher_residential_capital_rate" json:"higher_residential_capital_rate"`
	BasicOtherCapitalRate        Money `yaml:"basic_other_capital_rate" json:"basic_other_capital_rate"`
	HigherOtherCapitalRate       Money `yaml:"higher_other_capital_rate" json:"higher_other_capital_rate"`

	NIBand1Rate Money `yaml:"ni_band_1_rate" json:"ni_band_1_rate"` // above band 2, and between bands for J/L/Z
	NIBand2Rate Money `yaml:"ni_band_2_rate" json:"ni_band_2_rate"` // between bands for B/I
	NIBand3Rate Money `yaml:"ni_band_3_rate" json:"ni_band_3_rate"` // between bands for A/F/H/M/V

	PersonalAllowance     Money `yaml:"personal_allowance" json:"personal_allowance"`
	TaperThreshold        Money `yaml:"taper_threshold" json:"taper_threshold"`
	TaperValue            Money `yaml:"taper_value" json:"taper_value"` // £ of income per £1 of allowance lost
	BasicIncomeTopBand    Money `yaml:"basic_income_top_band" json:"basic_income_top_band"`
	HigherIncomeTopBand   Money `yaml:"higher_income_top_band" json:"higher_income_top_band"`
	StartingSavingsBand   Money `yaml:"starting_savings_band" json:"starting_savings_band"`
	SelfEmploymentBand    Money `yaml:"self_employment_band" json:"self_employment_band"`
	RentalBand            Money `yaml:"rental_band" json:"rental_band"`
	DividendAllowance     Money `yaml:"dividend_allowance" json:"dividend_allowance"`
	CapitalGainsAllowance Money `yaml:"capital_gains_allowance" json:"capital_gains_allowance"`
	NIBand1               Money `yaml:"ni_band_1" json:"ni_band_1"` // monthly primary threshold
	NIBand2               Money `yaml:"ni_band_2" json:"ni_band_2"` // monthly upper earnings limit
	BasicSavingsAllowance Money `yaml:"basic_savings_allowance" json:"basic_savings_allowance"`
	HigherSavingsAllow    Money `yaml:"higher_savings_allowance" json:"higher_savings_allowance"`
}

// DefaultTaxConfig returns the rates and bands the simulation starts from
func DefaultTaxConfig() TaxConfig {
	return TaxConfig{
		BasicIncomeRate:      M(0.22),
		HigherIncomeRate:     M(0.4),
		AdditionalIncomeRate: M(0.45),

		BasicDividendRate:      M(0.0875),
		HigherDividendRate:     M(0.3375),
		AdditionalDividendRate: M(0.3935),

		BasicResidentialCapitalRate:  M(0.18),
		HigherResidentialCapitalRate: M(0.28),
		BasicOtherCapitalRate:        M(0.1),
		HigherOtherCapitalRate:       M(0.28),

		NIBand1Rate: M(0.0325),
		NIBand2Rate: M(0.071),
		NIBand3Rate: M(0.1325),

		PersonalAllowance:     M(12_571),
		TaperThreshold:        M(100_000),
		TaperValue:            M(2),
		BasicIncomeTopBand:    M(50_270),
		HigherIncomeTopBand:   M(150_000),
		StartingSavingsBand:   M(5_000),
		SelfEmploymentBand:    M(1_000),
		RentalBand:            M(1_000),
		DividendAllowance:     M(2_000),
		CapitalGainsAllowance: M(12_300),
		NIBand1:               M(823.01),
		NIBand2:               M(4_189),
		BasicSavingsAllowance: M(1_000),
		HigherSavingsAllow:    M(500),
	}
}

// ApplyInflation returns a copy with every band and allowance scaled by
// (1 + inflation). Rates and the taper ratio are unchanged.
func (c TaxConfig) ApplyInflation(inflation float64) TaxConfig {
	f := one.Add(M(inflation))
	out := c
	out.PersonalAllowance = c.PersonalAllowance.Mul(f)
	out.TaperThreshold = c.TaperThreshold.Mul(f)
	out.BasicIncomeTopBand = c.BasicIncomeTopBand.Mul(f)
	out.HigherIncomeTopBand = c.HigherIncomeTopBand.Mul(f)
	out.StartingSavingsBand = c.StartingSavingsBand.Mul(f)
	out.SelfEmploymentBand = c.SelfEmploymentBand.Mul(f)
	out.RentalBand = c.RentalBand.Mul(f)
	out.DividendAllowance = c.DividendAllowance.Mul(f)
	out.CapitalGainsAllowance = c.CapitalGainsAllowance.Mul(f)
	out.NIBand1 = c.NIBand1.Mul(f)
	out.NIBand2 = c.NIBand2.Mul(f)
	out.BasicSavingsAllowance = c.BasicSavingsAllowance.Mul(f)
	out.HigherSavingsAllow = c.HigherSavingsAllow.Mul(f)
	return out
}

// TaxInput is the income accumulated over one tax year
type TaxInput struct {
	NonPAYEEmployment Money
	PAYEEmployment    Money
	Rental            Money
	Savings           Money
	SelfEmployment    Money
	Contributions     Money
	PAYETaxPaid       Money
	CapitalGains      Money // realised on non-residential assets
	ResidentialGains  Money
	Dividends         Money
	NI                NICategory
}

// NewTaxInput returns an input with every amount at zero
func NewTaxInput(nic NICategory) TaxInput {
	return TaxInput{
		NonPAYEEmployment: zero, PAYEEmployment: zero, Rental: zero, Savings: zero,
		SelfEmployment: zero, Contributions: zero, PAYETaxPaid: zero,
		CapitalGains: zero, ResidentialGains: zero, Dividends: zero, NI: nic,
	}
}

// TotalIncome is every income taxed through the annual path, before contributions
func (in TaxInput) TotalIncome() Money {
	return in.NonPAYEEmployment.Add(in.Rental).Add(in.Savings).Add(in.SelfEmployment)
}

// TaxableIncome is TotalIncome net of pension contributions. PAYE wages are
// taxed at source and stay out of it.
func (in TaxInput) TaxableIncome() Money {
	return in.TotalIncome().Sub(in.Contributions)
}

// IncomeTaxOutput itemises the income tax calculation
type IncomeTaxOutput struct {
	Basic         Money
	Higher        Money
	Additional    Money
	Allowances    Money
	TaxableIncome Money
}

// Total is band tax less allowances, never below zero
func (o IncomeTaxOutput) Total() Money {
	return clampZero(o.Basic.Add(o.Higher).Add(o.Additional).Sub(o.Allowances))
}

// TaxOutput itemises everything due for a period
type TaxOutput struct {
	Income       IncomeTaxOutput
	CapitalGains Money
	NI           Money
	Dividend     Money
	PAYEPaid     Money
}

// Total is the amount still owed. PAYE withheld during the year is credited
// and the result is never a refund.
func (o TaxOutput) Total() Money {
	sum := o.Income.Total().Add(o.CapitalGains).Add(o.NI).Add(o.Dividend)
	return clampZero(sum.Sub(o.PAYEPaid))
}

// thresholdTax charges rate on the part of income that falls in (min, max].
func thresholdTax(income, min, max, rate Money) Money {
	if !income.GreaterThan(min) || !max.GreaterThan(min) {
		return zero
	}
	return rate.Mul(minMoney(income, max).Sub(min))
}

// periodDivisor scales annual bands down to a monthly pay period
func periodDivisor(paye bool) Money {
	if paye {
		return twelve
	}
	return one
}

func basicBandTax(income Money, paye bool, c TaxConfig) Money {
	d := periodDivisor(paye)
	taperThreshold := c.TaperThreshold.Div(d)
	min := c.PersonalAllowance.Div(d)
	max := c.BasicIncomeTopBand.Div(d)

	if income.GreaterThanOrEqual(taperThreshold) && c.TaperValue.IsPositive() {
		over := income.Sub(taperThreshold)
		min = clampZero(min.Sub(over.Mul(c.TaperValue)))
	}
	return thresholdTax(income, min, max, c.BasicIncomeRate)
}

func higherBandTax(income Money, paye bool, c TaxConfig) Money {
	d := periodDivisor(paye)
	min := c.BasicIncomeTopBand.Add(one).Div(d)
	max := c.HigherIncomeTopBand.Div(d)
	return thresholdTax(income, min, max, c.HigherIncomeRate)
}

func additionalBandTax(income Money, paye bool, c TaxConfig) Money {
	d := periodDivisor(paye)
	min := c.HigherIncomeTopBand.Add(one).Div(d)
	return thresholdTax(income, min, moneyMax, c.AdditionalIncomeRate)
}

// capAt returns the allowance limited to the income it applies to
func capAt(allowance, income Money) Money {
	if !income.IsPositive() {
		return zero
	}
	return minMoney(allowance, income)
}

// personalSavingsAllowance depends on the highest band the payer reaches:
// none for additional-rate payers.
func personalSavingsAllowance(savings, higher, additional Money, c TaxConfig) Money {
	if savings.IsZero() || !additional.IsZero() {
		return zero
	}
	if higher.IsZero() {
		return capAt(c.BasicSavingsAllowance, savings)
	}
	return capAt(c.HigherSavingsAllow, savings)
}

// startingSavingsAllowance only applies on low total income
func startingSavingsAllowance(savings, totalIncome Money, c TaxConfig) Money {
	threshold := c.PersonalAllowance.Add(c.StartingSavingsBand)
	if totalIncome.LessThan(threshold) {
		return capAt(c.StartingSavingsBand, savings)
	}
	return zero
}

// CalculateIncomeTax runs the annual income tax calculation
func CalculateIncomeTax(in TaxInput, c TaxConfig) IncomeTaxOutput {
	taxable := in.TaxableIncome()
	out := IncomeTaxOutput{
		Basic:         basicBandTax(taxable, false, c),
		Higher:        higherBandTax(taxable, false, c),
		Additional:    additionalBandTax(taxable, false, c),
		TaxableIncome: taxable,
	}
	out.Allowances = personalSavingsAllowance(in.Savings, out.Higher, out.Additional, c).
		Add(startingSavingsAllowance(in.Savings, in.TotalIncome(), c)).
		Add(capAt(c.SelfEmploymentBand, in.SelfEmployment)).
		Add(capAt(c.RentalBand, in.Rental))
	return out
}

// CalculatePAYEIncomeTax is the monthly PAYE version: bands divided by 12 and
// no allowances.
func CalculatePAYEIncomeTax(pay, contribution Money, c TaxConfig) IncomeTaxOutput {
	taxable := pay.Sub(contribution)
	return IncomeTaxOutput{
		Basic:         basicBandTax(taxable, true, c),
		Higher:        higherBandTax(taxable, true, c),
		Additional:    additionalBandTax(taxable, true, c),
		Allowances:    zero,
		TaxableIncome: taxable,
	}
}

// CalculateCapitalGainsTax charges gains above the annual allowance at the
// basic or higher rates. The allowance is used against residential gains
// first; losses on other assets net off before the allowance.
func CalculateCapitalGainsTax(in TaxInput, c TaxConfig) Money {
	resi := clampZero(in.ResidentialGains)
	net := resi.Add(in.CapitalGains)
	taxableGain := net.Sub(c.CapitalGainsAllowance)
	if !taxableGain.IsPositive() {
		return zero
	}

	resiTaxable := minMoney(taxableGain, clampZero(resi.Sub(c.CapitalGainsAllowance)))
	otherTaxable := taxableGain.Sub(resiTaxable)

	over := in.TaxableIncome().Sub(c.PersonalAllowance)
	resiRate, otherRate := c.BasicResidentialCapitalRate, c.BasicOtherCapitalRate
	if !over.Add(taxableGain).LessThan(c.BasicIncomeTopBand) {
		resiRate, otherRate = c.HigherResidentialCapitalRate, c.HigherOtherCapitalRate
	}
	return resiTaxable.Mul(resiRate).Add(otherTaxable.Mul(otherRate))
}

// CalculateDividendTax fills whatever basic and higher band headroom the
// other income left, then charges the rest at the additional rate.
func CalculateDividendTax(in TaxInput, it IncomeTaxOutput, c TaxConfig) Money {
	if !in.Dividends.GreaterThan(c.DividendAllowance) {
		return zero
	}
	taxable := in.Dividends.Sub(c.DividendAllowance)
	if it.Additional.IsPositive() {
		return taxable.Mul(c.AdditionalDividendRate)
	}

	left := taxable
	tax := zero

	basicRoom := c.BasicIncomeTopBand.Sub(it.TaxableIncome)
	if basicRoom.IsPositive() {
		used := minMoney(basicRoom, left)
		tax = tax.Add(used.Mul(c.BasicDividendRate))
		left = left.Sub(used)
	}
	higherRoom := c.HigherIncomeTopBand.Sub(it.TaxableIncome)
	if higherRoom.IsPositive() && left.IsPositive() {
		used := minMoney(higherRoom, left)
		tax = tax.Add(used.Mul(c.HigherDividendRate))
		left = left.Sub(used)
	}
	if left.IsPositive() {
		tax = tax.Add(left.Mul(c.AdditionalDividendRate))
	}
	return tax
}

// CalculateTax runs the full annual settlement for a period
func CalculateTax(in TaxInput, c TaxConfig) TaxOutput {
	it := CalculateIncomeTax(in, c)
	return TaxOutput{
		Income:       it,
		CapitalGains: CalculateCapitalGainsTax(in, c),
		NI:           CalculateNI(in.NI, in.NonPAYEEmployment, false, c),
		Dividend:     CalculateDividendTax(in, it, c),
		PAYEPaid:     in.PAYETaxPaid,
	}
}

// CalculatePAYE is the stateless per-pay-period deduction: income tax on pay
// net of contribution plus NI on gross pay.
func CalculatePAYE(pay, contribution Money, nic NICategory, c TaxConfig) TaxOutput {
	return TaxOutput{
		Income:       CalculatePAYEIncomeTax(pay, contribution, c),
		CapitalGains: zero,
		NI:           CalculateNI(nic, pay, true, c),
		Dividend:     zero,
		PAYEPaid:     zero,
	}
}
