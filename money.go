package main

import (
	"github.com/shopspring/decimal"
)

// Money is the single representation used for every monetary quantity.
type Money = decimal.Decimal

var (
	zero     = decimal.Zero
	one      = decimal.NewFromInt(1)
	twelve   = decimal.NewFromInt(12)
	hundred  = decimal.NewFromInt(100)
	moneyMax = decimal.New(1, 18) // upper edge for open-ended bands
)

// M converts a float literal into Money.
func M(f float64) Money {
	return decimal.NewFromFloat(f)
}

func minMoney(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxMoney(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// clampZero floors negative amounts at zero.
func clampZero(a Money) Money {
	return maxMoney(a, zero)
}

// growBy returns v × (1 + rate).
func growBy(v Money, rate float64) Money {
	return v.Mul(one.Add(M(rate)))
}
