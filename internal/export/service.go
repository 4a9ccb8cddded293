// Package export renders a completed evaluation payload as an XLSX workbook
// for handing results to auditors.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/compliance-checker/backend/internal/aggregate"
	"github.com/compliance-checker/backend/internal/models"
)

// statusLabel maps the judgement symbol to a readable label next to it.
func statusLabel(s models.ComplianceStatus) string {
	switch s {
	case models.ComplianceFull:
		return "Compliant"
	case models.CompliancePartial:
		return "Partially compliant"
	case models.ComplianceNone:
		return "Non-compliant"
	default:
		return "Unknown"
	}
}

// AssessmentsXLSX returns an XLSX workbook (as bytes) with one row per
// assessed requirement plus a summary block of counts and percentages.
func AssessmentsXLSX(fileName string, result *models.WorkflowResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("no evaluation payload to export")
	}

	start := time.Now()
	f := excelize.NewFile()
	const sheet = "Assessments"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// Drop the default sheet so the workbook opens on Assessments.
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		f.DeleteSheet("Sheet1")
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headers := []string{
		"Requirement",
		"Status",
		"Judgement",
		"Reasoning",
		"Alternative Solution",
		"Reference Source",
	}
	for i, h := range headers {
		write(i+1, 1, h)
	}

	row := 2
	for _, item := range result.Judgement {
		write(1, row, item.OriginalItem)
		write(2, row, string(item.Status))
		write(3, row, statusLabel(item.Status))
		write(4, row, item.Reasoning)
		write(5, row, item.AlternativeSolution)
		write(6, row, item.ReferenceSource)
		row++
	}

	// Summary block below the table.
	summary := aggregate.Summarize(result.Judgement)
	row++
	write(1, row, "Summary")
	row++
	for _, s := range []models.ComplianceStatus{models.ComplianceFull, models.CompliancePartial, models.ComplianceNone} {
		write(1, row, statusLabel(s))
		write(2, row, summary.Counts[s])
		write(3, row, fmt.Sprintf("%d%%", summary.Percentages[s]))
		row++
	}
	for status, count := range summary.Counts {
		if status.Known() {
			continue
		}
		write(1, row, fmt.Sprintf("Unknown (%s)", status))
		write(2, row, count)
		write(3, row, fmt.Sprintf("%d%%", summary.Percentages[status]))
		row++
	}

	row++
	write(1, row, "Source file")
	write(2, row, fileName)
	row++
	write(1, row, "Run")
	write(2, row, result.RunID)
	row++
	write(1, row, "Elapsed (s)")
	write(2, row, result.ElapsedTime)
	row++
	write(1, row, "Total tokens")
	write(2, row, result.TotalTokens)

	_ = f.SetColWidth(sheet, "A", "A", 48) // requirement
	_ = f.SetColWidth(sheet, "B", "B", 8)  // symbol
	_ = f.SetColWidth(sheet, "C", "C", 20) // label
	_ = f.SetColWidth(sheet, "D", "D", 60) // reasoning
	_ = f.SetColWidth(sheet, "E", "F", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	fmt.Printf("[Export] XLSX for %s: %d rows, %dms\n",
		fileName, len(result.Judgement), time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
