package main

// niBands returns the primary threshold and upper earnings limit for the
// period. The configured bands are monthly.
func niBands(paye bool, c TaxConfig) (lower, upper Money) {
	if paye {
		return c.NIBand1, c.NIBand2
	}
	return c.NIBand1.Mul(twelve), c.NIBand2.Mul(twelve)
}

// niMainRate is the rate charged between the two bands for each category.
// Exempt categories return false.
func niMainRate(nic NICategory, c TaxConfig) (Money, bool) {
	switch nic {
	case NICategoryA, NICategoryF, NICategoryH, NICategoryM, NICategoryV:
		return c.NIBand3Rate, true
	case NICategoryB, NICategoryI:
		return c.NIBand2Rate, true
	case NICategoryJ, NICategoryL, NICategoryZ:
		return c.NIBand1Rate, true
	default: // C and S pay nothing
		return zero, false
	}
}

// CalculateNI returns the employee National Insurance due on income. With
// paye set income is one month's pay; otherwise it is a full year.
func CalculateNI(nic NICategory, income Money, paye bool, c TaxConfig) Money {
	rate, ok := niMainRate(nic, c)
	if !ok {
		return zero
	}
	lower, upper := niBands(paye, c)
	main := thresholdTax(income, lower, upper, rate)
	above := thresholdTax(income, upper, moneyMax, c.NIBand1Rate)
	return main.Add(above)
}
