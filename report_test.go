package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "£0"},
		{999, "£999"},
		{-500, "-£500"},
		{12_345, "£12k"},
		{2_500_000, "£2.50M"},
		{-1_250_000, "-£1.25M"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatMoney(M(tc.in)))
	}
	assert.Equal(t, "£1235", FormatMoneyFull(M(1_234.56)))
	assert.Equal(t, "\xa3999", FormatMoneyPDF(M(999)))
}

func TestBuildRates(t *testing.T) {
	rates := buildRates(0.01, 0.03, 0.01)
	require.Len(t, rates, 3)
	assert.InDelta(t, 0.03, rates[2], 1e-9)
}

func TestRunSensitivityAnalysis(t *testing.T) {
	config, err := LoadDefaultConfig()
	require.NoError(t, err)
	config.Years = 1
	config.Sensitivity = SensitivityConfig{InflationMin: 0.02, InflationMax: 0.03, StepSize: 0.01}

	analysis, err := RunSensitivityAnalysis(context.Background(), config, nil)
	require.NoError(t, err)
	require.Len(t, analysis.Results, 2)
	assert.InDelta(t, 0.02, analysis.Results[0].InflationMean, 1e-9)
	for _, r := range analysis.Results {
		assert.True(t, r.TotalTax.IsPositive())
	}
}

func TestGenerateHouseholdPDFReport(t *testing.T) {
	config, err := LoadDefaultConfig()
	require.NoError(t, err)
	config.Years = 1

	sim, err := config.Build(BuildOptions{Seed: config.Market.Seed, RunID: "pdf"})
	require.NoError(t, err)
	result, err := sim.Run(context.Background())
	require.NoError(t, err)
	batch := summarise([]SimulationResult{result})
	sensitivity := &SensitivityAnalysis{Config: config, Results: []SensitivityResult{
		{InflationMean: 0.02, FinalBalance: M(100_000), TotalTax: M(20_000)},
		{InflationMean: 0.08, FinalBalance: M(0), TotalTax: M(25_000), Unrecoverable: true, FailedOn: "2026-04-01"},
	}}

	pdf, err := GenerateHouseholdPDFReport(config, result, batch, sensitivity)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	plain, err := GenerateHouseholdPDFReport(config, result, nil, nil)
	require.NoError(t, err)
	assert.Less(t, len(plain), len(pdf), "batch and sensitivity pages are optional")
}
