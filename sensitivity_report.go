package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SensitivityResult holds the outcome for one inflation mean
type SensitivityResult struct {
	InflationMean float64
	FinalBalance  Money
	TotalTax      Money
	Unrecoverable bool
	FailedOn      string
}

// SensitivityAnalysis holds the complete analysis
type SensitivityAnalysis struct {
	Results []SensitivityResult
	Config  *ScenarioConfig
}

// buildRates generates a slice of rates from min to max with given step
func buildRates(min, max, step float64) []float64 {
	var rates []float64
	for r := min; r <= max+0.0001; r += step { // small epsilon for float comparison
		rates = append(rates, r)
	}
	return rates
}

// RunSensitivityAnalysis reruns the scenario across the configured grid of
// inflation means. Every run uses the scenario's own seed so only the mean
// changes between rows.
func RunSensitivityAnalysis(ctx context.Context, config *ScenarioConfig, logger *zap.Logger) (*SensitivityAnalysis, error) {
	min, max := config.Sensitivity.InflationMin, config.Sensitivity.InflationMax
	step := config.Sensitivity.StepSize
	if min == 0 && max == 0 {
		min, max = 0.01, 0.06
	}
	if step <= 0 {
		step = 0.01
	}

	analysis := &SensitivityAnalysis{Config: config}
	for _, rate := range buildRates(min, max, step) {
		sim, err := config.Build(BuildOptions{
			Seed:          config.Market.Seed,
			RunID:         fmt.Sprintf("inflation-%.3f", rate),
			Logger:        logger,
			InflationMean: &rate,
		})
		if err != nil {
			return nil, err
		}
		result, err := sim.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("inflation %.1f%%: %w", rate*100, err)
		}

		row := SensitivityResult{
			InflationMean: rate,
			FinalBalance:  result.Final.Total(),
			TotalTax:      result.TotalTaxPaid(),
			Unrecoverable: result.Unrecoverable(),
		}
		if row.Unrecoverable {
			row.FailedOn = result.FailedOn.String()
		}
		analysis.Results = append(analysis.Results, row)
	}
	return analysis, nil
}

// PrintSensitivityTable prints one row per inflation mean
func PrintSensitivityTable(analysis *SensitivityAnalysis) {
	fmt.Println()
	fmt.Println("Inflation sensitivity:")
	fmt.Printf("  %-10s │ %14s │ %14s │ %s\n", "Inflation", "Final value", "Tax paid", "Outcome")
	fmt.Println("  " + strings.Repeat("─", 60))
	for _, r := range analysis.Results {
		outcome := "ok"
		if r.Unrecoverable {
			outcome = "unrecoverable " + r.FailedOn
		}
		fmt.Printf("  %9.1f%% │ %14s │ %14s │ %s\n",
			r.InflationMean*100, FormatMoneyFull(r.FinalBalance), FormatMoneyFull(r.TotalTax), outcome)
	}
}
