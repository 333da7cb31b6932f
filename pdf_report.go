package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// pdfText converts UTF-8 text to PDF-safe encoding
// The £ sign in UTF-8 is 0xC2 0xA3, but PDF standard fonts expect Latin-1 (just 0xA3)
func pdfText(s string) string {
	return strings.ReplaceAll(s, "£", "\xa3")
}

// FormatMoneyPDF formats money for PDF output (handles £ encoding)
func FormatMoneyPDF(m Money) string {
	return pdfText(FormatMoney(m))
}

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// PDFHouseholdReport renders a single run, optionally with batch and
// sensitivity pages.
type PDFHouseholdReport struct {
	pdf         *fpdf.Fpdf
	config      *ScenarioConfig
	result      SimulationResult
	batch       *BatchResult
	sensitivity *SensitivityAnalysis
}

// GenerateHouseholdPDFReport creates the PDF report. batch and sensitivity
// may be nil.
func GenerateHouseholdPDFReport(config *ScenarioConfig, result SimulationResult, batch *BatchResult, sensitivity *SensitivityAnalysis) ([]byte, error) {
	report := &PDFHouseholdReport{
		pdf:         fpdf.New("P", "mm", "A4", ""),
		config:      config,
		result:      result,
		batch:       batch,
		sensitivity: sensitivity,
	}

	report.pdf.SetMargins(marginLeft, marginTop, marginRight)
	report.pdf.SetAutoPageBreak(true, marginBottom)

	report.addTitlePage()
	report.addAnnualSummary()
	report.addMortgagePage()
	if batch != nil {
		report.addBatchPage()
	}
	if sensitivity != nil {
		report.addSensitivityPage()
	}

	var buf bytes.Buffer
	if err := report.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *PDFHouseholdReport) addTitlePage() {
	r.pdf.AddPage()

	r.pdf.SetFont("Arial", "B", 28)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.Ln(50)
	r.pdf.CellFormat(contentWidth, 15, "Household Cash Flow Report", "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "", 14)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.Ln(10)
	r.pdf.CellFormat(contentWidth, 10, pdfText(r.config.Name), "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "I", 11)
	r.pdf.Ln(15)
	r.pdf.CellFormat(contentWidth, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2 January 2006")), "", 1, "C", false, 0, "")

	r.pdf.Ln(20)
	r.pdf.SetFillColor(245, 247, 250)
	r.pdf.SetDrawColor(200, 200, 200)
	r.pdf.SetFont("Arial", "B", 12)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 8, "Simulation Period", "1", 1, "C", true, 0, "")

	r.pdf.SetFont("Arial", "", 11)
	r.pdf.SetTextColor(50, 50, 50)
	periodText := fmt.Sprintf("%s to %s (%d years)", r.result.Start, r.result.End, r.config.Years)
	r.pdf.CellFormat(contentWidth, 7, periodText, "LR", 1, "C", true, 0, "")
	outcome := "Completed"
	if r.result.Unrecoverable() {
		outcome = fmt.Sprintf("Unrecoverable from %s", r.result.FailedOn)
	}
	r.pdf.CellFormat(contentWidth, 7, "Outcome: "+outcome, "LRB", 1, "C", true, 0, "")

	r.pdf.Ln(10)
	r.pdf.SetFont("Arial", "B", 12)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 8, "Final Position", "1", 1, "C", true, 0, "")
	r.pdf.SetFont("Arial", "", 11)
	r.pdf.SetTextColor(50, 50, 50)
	final := r.result.Final
	lines := []string{
		fmt.Sprintf("Cash %s | ISA %s | GIA %s | SIPP %s",
			FormatMoneyPDF(final.Cash), FormatMoneyPDF(final.ISA), FormatMoneyPDF(final.GIA), FormatMoneyPDF(final.SIPP)),
		fmt.Sprintf("Total %s | Tax paid %s", FormatMoneyPDF(final.Total()), FormatMoneyPDF(r.result.TotalTaxPaid())),
	}
	for i, line := range lines {
		border := "LR"
		if i == len(lines)-1 {
			border = "LRB"
		}
		r.pdf.CellFormat(contentWidth, 7, line, border, 1, "C", true, 0, "")
	}

	r.pdf.Ln(15)
	r.pdf.SetFont("Arial", "I", 9)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.MultiCell(contentWidth, 4.5,
		"This document is for informational purposes only and does not constitute financial advice. "+
			"Market data is simulated. Tax rules and allowances are subject to change.", "", "C", false)
}

func (r *PDFHouseholdReport) addAnnualSummary() {
	r.pdf.AddPage()
	r.drawSectionHeader("Tax Year Summary")

	headers := []string{"Tax year", "Gross", "Net", "Expense", "Tax", "ISA", "GIA", "SIPP", "Total"}
	widths := []float64{24, 20, 20, 20, 18, 20, 18, 20, 20}
	r.drawTableHeader(headers, widths)

	total := zero
	for _, f := range r.result.Annual {
		r.drawTableRow([]string{
			f.Date.String(),
			FormatMoneyPDF(f.GrossIncome),
			FormatMoneyPDF(f.NetIncome),
			FormatMoneyPDF(f.Expense),
			FormatMoneyPDF(f.TaxPaid),
			FormatMoneyPDF(f.ISA),
			FormatMoneyPDF(f.GIA),
			FormatMoneyPDF(f.SIPP),
			FormatMoneyPDF(f.Total()),
		}, widths, false)
		total = total.Add(f.TaxPaid)
	}
	r.drawTableRow([]string{"Total tax", "", "", "", FormatMoneyPDF(total), "", "", "", ""}, widths, true)

	r.pdf.Ln(8)
	r.drawSectionHeader("Contributions")
	widths = []float64{60, 40}
	r.drawTableHeader([]string{"Wrapper", "Paid in"}, widths)
	r.drawTableRow([]string{"ISA", FormatMoneyPDF(r.result.PaidIntoISA)}, widths, false)
	r.drawTableRow([]string{"GIA", FormatMoneyPDF(r.result.PaidIntoGIA)}, widths, false)
	r.drawTableRow([]string{"SIPP", FormatMoneyPDF(r.result.PaidIntoSIPP)}, widths, false)
}

func (r *PDFHouseholdReport) addMortgagePage() {
	if len(r.result.Events) == 0 {
		return
	}
	r.pdf.AddPage()
	r.drawSectionHeader("Mortgage Payments")

	// One row per calendar year keeps the table to a page
	type yearRow struct {
		paid, missed int
		amount       Money
		balance      Money
	}
	var years []int
	rows := map[int]*yearRow{}
	for _, e := range r.result.Events {
		row, ok := rows[e.Date.Year]
		if !ok {
			row = &yearRow{amount: zero}
			rows[e.Date.Year] = row
			years = append(years, e.Date.Year)
		}
		switch e.Kind {
		case PaymentSuccess:
			row.paid++
			row.amount = row.amount.Add(e.Amount)
		case PaymentFailure:
			row.missed++
		}
		row.balance = e.Balance
	}

	widths := []float64{30, 30, 30, 40, 40}
	r.drawTableHeader([]string{"Year", "Payments", "Missed", "Paid", "Balance"}, widths)
	for _, y := range years {
		row := rows[y]
		r.setOutcomeColor(row.missed > 0)
		r.drawTableRow([]string{
			fmt.Sprintf("%d", y),
			fmt.Sprintf("%d", row.paid),
			fmt.Sprintf("%d", row.missed),
			FormatMoneyPDF(row.amount),
			FormatMoneyPDF(row.balance),
		}, widths, false)
	}
}

func (r *PDFHouseholdReport) addBatchPage() {
	r.pdf.AddPage()
	r.drawSectionHeader("Monte Carlo Batch")

	r.pdf.SetFont("Arial", "", 11)
	r.pdf.SetTextColor(50, 50, 50)
	r.pdf.MultiCell(contentWidth, 6, pdfText(fmt.Sprintf(
		"%d runs, %.1f%% completed without an unrecoverable tax bill. Final value P10 %s, median %s, P90 %s.",
		len(r.batch.Runs), r.batch.SuccessRate()*100,
		FormatMoney(r.batch.P10Final), FormatMoney(r.batch.MedianFinal), FormatMoney(r.batch.P90Final))), "", "L", false)
	r.pdf.Ln(4)

	widths := []float64{40, 45, 45, 45}
	r.drawTableHeader([]string{"Tax year", "Avg gross", "Avg tax", "Avg total"}, widths)
	for _, f := range r.batch.Annual {
		r.drawTableRow([]string{
			f.Date.String(), FormatMoneyPDF(f.GrossIncome), FormatMoneyPDF(f.TaxPaid), FormatMoneyPDF(f.Total()),
		}, widths, false)
	}
}

func (r *PDFHouseholdReport) addSensitivityPage() {
	r.pdf.AddPage()
	r.drawSectionHeader("Inflation Sensitivity")

	widths := []float64{35, 50, 50, 45}
	r.drawTableHeader([]string{"Inflation", "Final value", "Tax paid", "Outcome"}, widths)
	for _, row := range r.sensitivity.Results {
		outcome := "ok"
		if row.Unrecoverable {
			outcome = "failed " + row.FailedOn
		}
		r.setOutcomeColor(row.Unrecoverable)
		r.drawTableRow([]string{
			fmt.Sprintf("%.1f%%", row.InflationMean*100),
			FormatMoneyPDF(row.FinalBalance),
			FormatMoneyPDF(row.TotalTax),
			outcome,
		}, widths, false)
	}
}

// Helper functions

func (r *PDFHouseholdReport) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 16)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 10, title, "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(5)
}

func (r *PDFHouseholdReport) drawTableHeader(headers []string, widths []float64) {
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 9)

	for i, header := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, header, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
	r.pdf.SetTextColor(50, 50, 50)
}

// drawTableRow keeps whatever text colour the caller set
func (r *PDFHouseholdReport) drawTableRow(cells []string, widths []float64, isBold bool) {
	r.pdf.SetFillColor(250, 250, 250)

	if isBold {
		r.pdf.SetFont("Arial", "B", 9)
		r.pdf.SetFillColor(240, 240, 240)
	} else {
		r.pdf.SetFont("Arial", "", 9)
	}

	for i, cell := range cells {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 5, cell, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
	r.pdf.SetTextColor(50, 50, 50)
}

func (r *PDFHouseholdReport) setOutcomeColor(failed bool) {
	if failed {
		r.pdf.SetTextColor(180, 0, 0)
		return
	}
	r.pdf.SetTextColor(50, 50, 50)
}
