package main

import "cloud.google.com/go/civil"

// CalculateCapitalGains sums the gains realised by sells dated after start
// and up to end. For each sale the average cost is rebuilt from every earlier
// trade of the same symbol, so allTrades must carry the full history.
// Quadratic in trade count; trading here is infrequent.
func CalculateCapitalGains(allTrades []Trade, start, end civil.Date) Money {
	gain := zero
	for _, sale := range allTrades {
		if sale.Type != Sell || !sale.Date.After(start) || sale.Date.After(end) {
			continue
		}
		if !sale.Quantity.IsPositive() {
			continue
		}

		cumQty, cumValue := zero, zero
		seen := false
		for _, t := range allTrades {
			if t.Symbol != sale.Symbol || !t.Date.Before(sale.Date) {
				continue
			}
			seen = true
			switch t.Type {
			case Buy:
				cumQty = cumQty.Add(t.Quantity)
				cumValue = cumValue.Add(t.Value)
			case Sell:
				cumQty = cumQty.Sub(t.Quantity)
				cumValue = cumValue.Sub(t.Value)
			}
		}
		if !seen || !cumQty.IsPositive() {
			continue
		}

		avgCost := cumValue.Div(cumQty)
		salePrice := sale.Value.Div(sale.Quantity)
		gain = gain.Add(salePrice.Sub(avgCost).Mul(sale.Quantity))
	}
	return gain
}

// SumDividends totals the payments in the slice
func SumDividends(payments []DividendPayment) Money {
	sum := zero
	for _, p := range payments {
		sum = sum.Add(p.Value)
	}
	return sum
}
