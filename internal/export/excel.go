package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/defolio/defolio/internal/apy"
	"github.com/defolio/defolio/internal/domain"
)

// WriteMonthlyReport writes a monthly report workbook with a NAV sheet holding
// the full fee waterfall and a Yield sheet with per-position estimates.
func WriteMonthlyReport(path string, res domain.NAVCalculationResult, yields map[string]apy.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const navSheet = "NAV"
	f.SetSheetName("Sheet1", navSheet)
	for i, row := range buildNavRows(res) {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(navSheet, cell, &row); err != nil {
			return fmt.Errorf("writing NAV row %d: %w", i+1, err)
		}
	}

	const yieldSheet = "Yield"
	if _, err := f.NewSheet(yieldSheet); err != nil {
		return fmt.Errorf("creating yield sheet: %w", err)
	}
	for i, row := range buildYieldRows(yields) {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(yieldSheet, cell, &row); err != nil {
			return fmt.Errorf("writing yield row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report to %s: %w", path, err)
	}
	return nil
}

// buildNavRows lays out the waterfall as label/value pairs, in calculation
// order, so the sheet reads top to bottom like the statement.
func buildNavRows(res domain.NAVCalculationResult) [][]any {
	rows := [][]any{
		{"Monthly NAV Statement", fmt.Sprintf("%04d-%02d", res.Year, res.Month)},
		{},
		{"Investments", toFloat(res.Investments)},
		{"Dividends receivable", toFloat(res.DividendsReceivable)},
		{"Total assets", toFloat(res.TotalAssets)},
		{"Accrued expenses", toFloat(res.AccruedExpenses)},
		{"Pre-fee NAV", toFloat(res.PreFeeNav)},
		{},
		{"Prior pre-fee NAV", toFloat(res.PriorPreFeeNav), string(res.PriorPreFeeNavSource)},
		{"Net flows", toFloat(res.NetFlows)},
		{"Performance", toFloat(res.Performance)},
		{"Hurdle amount", toFloat(res.HurdleAmount)},
		{},
		{"Performance fee", toFloat(res.PerformanceFee)},
		{"Accrued performance fees", toFloat(res.AccruedPerformanceFees)},
		{"Management fee", toFloat(res.ManagementFee)},
		{"Net assets", toFloat(res.NetAssets)},
	}

	if len(res.Warnings) > 0 {
		rows = append(rows, []any{})
		for _, warning := range res.Warnings {
			rows = append(rows, []any{"Warning", warning})
		}
	}
	return rows
}

// buildYieldRows lays out per-position estimates, sorted by identity for a
// stable sheet between runs.
func buildYieldRows(yields map[string]apy.Result) [][]any {
	rows := [][]any{
		{"Position", "APY %", "Period return %", "Days", "Method", "Confidence", "Current value", "Warnings"},
	}

	ids := make([]string, 0, len(yields))
	for id := range yields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := yields[id]
		rows = append(rows, []any{
			r.PositionIdentity,
			r.APY,
			r.PeriodReturnPct,
			r.DaysElapsed,
			string(r.Method),
			string(r.Confidence),
			r.CurrentValue,
			strings.Join(r.Warnings, "; "),
		})
	}
	return rows
}
