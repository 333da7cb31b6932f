package main

import (
	"fmt"
	"strings"
)

// FormatMoney formats an amount as an abbreviated currency string
func FormatMoney(m Money) string {
	amount := m.InexactFloat64()
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if amount >= 1000000 {
		return fmt.Sprintf("%s£%.2fM", sign, amount/1000000)
	}
	if amount >= 1000 {
		return fmt.Sprintf("%s£%.0fk", sign, amount/1000)
	}
	return fmt.Sprintf("%s£%.0f", sign, amount)
}

// FormatMoneyFull formats an amount as full currency (no abbreviation)
func FormatMoneyFull(m Money) string {
	return "£" + m.StringFixed(0)
}

// PrintHeader prints the scenario header
func PrintHeader(config *ScenarioConfig) {
	fmt.Println("╔══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    UK HOUSEHOLD CASH FLOW SIMULATION                         ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("Scenario:")
	fmt.Println("─────────")
	fmt.Printf("  %s: %d years from %s, NI category %s\n",
		config.Name, config.Years, config.StartDate, config.NICategory)
	fmt.Printf("  Starting cash %s, emergency minimum %s\n",
		FormatMoney(M(config.StartingCash)), FormatMoney(M(config.EmergencyMinimum)))
	fmt.Printf("  Inflation %.1f%% (±%.1f%%) | Base rate %.2f%% | House prices %.1f%%\n",
		config.Market.InflationMean*100, config.Market.InflationVolatility*100,
		config.Market.BaseRate*100, config.Market.HousePriceGrowth*100)

	fmt.Println()
	fmt.Println("  Flows:")
	for _, f := range config.Flows {
		amount := FormatMoneyFull(M(f.Value))
		if f.Type == "PercentExpense" {
			amount = fmt.Sprintf("%.0f%% of income", f.Pct*100)
		}
		fmt.Printf("    %-24s %-28s %12s  %s\n", f.Name, f.Type, amount, f.Schedule.Type)
	}

	if m := config.stack("Mortgage"); m != nil && m.Principal > 0 {
		scheduled := ScheduledPayment(M(m.Principal), m.Rate, m.TermYears)
		fmt.Printf("  Mortgage: %s @ %.2f%% over %d years, %d-year fix (annuity equivalent %s/month)\n",
			FormatMoney(M(m.Principal)), m.Rate*100, m.TermYears, m.FixYears, FormatMoneyFull(scheduled))
	}
	fmt.Println()
}

// PrintResultSummary prints the annual table and final balances of one run
func PrintResultSummary(result SimulationResult) {
	fmt.Println()
	fmt.Printf("%-12s │ %10s %10s │ %10s %10s │ %10s %10s %10s %10s │ %12s\n",
		"Tax year", "Gross", "Net", "Expense", "Tax", "Cash", "ISA", "GIA", "SIPP", "Total")
	fmt.Println(strings.Repeat("─", 124))

	for _, f := range result.Annual {
		fmt.Printf("%-12s │ %10s %10s │ %10s %10s │ %10s %10s %10s %10s │ %12s\n",
			f.Date.String(),
			FormatMoney(f.GrossIncome),
			FormatMoney(f.NetIncome),
			FormatMoney(f.Expense),
			FormatMoney(f.TaxPaid),
			FormatMoney(f.Cash),
			FormatMoney(f.ISA),
			FormatMoney(f.GIA),
			FormatMoney(f.SIPP),
			FormatMoney(f.Total()))
	}
	fmt.Println(strings.Repeat("─", 124))

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Total Tax Paid:    %s\n", FormatMoney(result.TotalTaxPaid()))
	fmt.Printf("  Paid into ISA:     %s\n", FormatMoney(result.PaidIntoISA))
	fmt.Printf("  Paid into GIA:     %s\n", FormatMoney(result.PaidIntoGIA))
	fmt.Printf("  Paid into SIPP:    %s\n", FormatMoney(result.PaidIntoSIPP))
	if result.FailedExpenses > 0 {
		fmt.Printf("  Missed expenses:   %d\n", result.FailedExpenses)
	}
	if result.Unrecoverable() {
		fmt.Printf("  ⚠️  WARNING: tax bill could not be met on %s, every account was wiped\n", result.FailedOn)
	}

	fmt.Println()
	fmt.Println("Final Balances:")
	fmt.Printf("  Cash %s, ISA %s, GIA %s, SIPP %s (total %s)\n",
		FormatMoney(result.Final.Cash),
		FormatMoney(result.Final.ISA),
		FormatMoney(result.Final.GIA),
		FormatMoney(result.Final.SIPP),
		FormatMoney(result.Final.Total()))
	if result.Final.Mortgage.IsPositive() {
		fmt.Printf("  Mortgage outstanding: %s\n", FormatMoney(result.Final.Mortgage))
	}
	PrintMortgageSummary(result.Events)
}

// PrintMortgageSummary prints payment counts and when the loan closed
func PrintMortgageSummary(events []LoanEvent) {
	if len(events) == 0 {
		return
	}
	paid, failed := 0, 0
	total := zero
	for _, e := range events {
		switch e.Kind {
		case PaymentSuccess:
			paid++
			total = total.Add(e.Amount)
		case PaymentFailure:
			failed++
		case LoanCompleted:
			fmt.Printf("  Mortgage repaid on %s\n", e.Date)
		}
	}
	fmt.Printf("  Mortgage payments: %d made (%s), %d missed\n", paid, FormatMoney(total), failed)
}

// PrintBatchSummary prints the distribution of a Monte Carlo batch
func PrintBatchSummary(b *BatchResult) {
	fmt.Println()
	fmt.Printf("Monte Carlo batch %s: %d runs\n", b.BatchID, len(b.Runs))
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("  Success rate:   %.1f%% (%d unrecoverable)\n", b.SuccessRate()*100, b.Unrecoverable)
	fmt.Printf("  Final value:    P10 %s | median %s | P90 %s | mean %s\n",
		FormatMoney(b.P10Final), FormatMoney(b.MedianFinal), FormatMoney(b.P90Final), FormatMoney(b.MeanFinal))

	if len(b.Annual) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Average by tax year:")
	fmt.Printf("  %-12s %10s %10s %12s\n", "Tax year", "Gross", "Tax", "Total")
	for _, f := range b.Annual {
		fmt.Printf("  %-12s %10s %10s %12s\n",
			f.Date.String(), FormatMoney(f.GrossIncome), FormatMoney(f.TaxPaid), FormatMoney(f.Total()))
	}
}
