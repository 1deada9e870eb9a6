// Package export renders the analysis summary as an Excel workbook for
// people who want the figures outside the dashboard.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/solarcross/solarcross/internal/pipeline"
	"github.com/solarcross/solarcross/internal/stats"
)

// WriteWorkbook writes one workbook with a sheet per section: site overview,
// per-metric comparison tests, and pairwise results.
func WriteWorkbook(summary *pipeline.Summary, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSites(f, summary); err != nil {
		return err
	}
	if err := writeComparisons(f, summary); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSites(f *excelize.File, summary *pipeline.Summary) error {
	const sheet = "Sites"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{
		"Site", "Country", "Rows",
		"GHI Mean", "GHI Std", "GHI Median", "GHI Max",
		"Mean Daily Energy (kWh/m2)", "Daylight %", "Mean Clearness",
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, s := range summary.Sites {
		row := []any{
			s.Name, s.Country, s.Rows,
			s.GHI.Mean, s.GHI.Std, s.GHI.Median, s.GHI.Max,
			s.Solar.MeanDailyEnergy, s.Solar.DaylightPercent, s.Solar.MeanClearness,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeComparisons(f *excelize.File, summary *pipeline.Summary) error {
	const sheet = "Comparisons"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"Metric", "Test", "Groups", "Statistic", "p-value", "Significant", "Interpretation"}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	rowIdx := 2
	for _, c := range summary.Comparisons {
		all := append([]stats.TestResult{c.ANOVA, c.KruskalWallis}, c.Pairwise...)
		for _, t := range all {
			names := make([]string, len(t.Groups))
			for i, g := range t.Groups {
				names[i] = g.Name
			}
			row := []any{c.Column, t.Test, strings.Join(names, ", "), t.Statistic, t.PValue, t.Significant, t.Interpretation}
			if err := writeRow(f, sheet, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
