package main

// Contribution limits for the tax wrappers
var (
	ISAAnnualDepositThreshold         = M(20_000)
	SIPPAnnualContributionThreshold   = M(40_000)
	SIPPLifetimeContributionThreshold = M(1_073_100)
)

// AllocateISA splits amount into the part that fits under the annual
// threshold and the remainder the caller has to place elsewhere.
func AllocateISA(amount, threshold, contributed Money) (applied, remainder Money) {
	headroom := threshold.Sub(contributed)
	switch {
	case !headroom.IsPositive():
		return zero, amount
	case amount.LessThan(headroom):
		return amount, zero
	default:
		return headroom, amount.Sub(headroom)
	}
}

// AllocateSIPP is AllocateISA with two caps checked together: the applied
// amount is bounded by whichever headroom is smaller.
func AllocateSIPP(amount, annualThreshold, lifetimeThreshold, annual, lifetime Money) (applied, remainder Money) {
	annualHeadroom := annualThreshold.Sub(annual)
	lifetimeHeadroom := lifetimeThreshold.Sub(lifetime)

	if !annualHeadroom.IsPositive() || !lifetimeHeadroom.IsPositive() {
		return zero, amount
	}
	if amount.LessThan(annualHeadroom) && amount.LessThan(lifetimeHeadroom) {
		return amount, zero
	}
	binding := minMoney(annualHeadroom, lifetimeHeadroom)
	return binding, amount.Sub(binding)
}
