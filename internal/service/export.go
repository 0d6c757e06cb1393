package service

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"nursecall_bridge/internal/models"
)

const exportSheet = "Call History"

var exportHeader = []string{
	"ID",
	"Code",
	"Room",
	"Bed",
	"Display",
	"Status",
	"Time",
	"Timestamp",
	"Reset Time",
	"Reset Time (local)",
}

var exportColumnWidths = []float64{16, 8, 18, 12, 28, 12, 22, 22, 22, 22}

// Export writes the call history, optionally filtered by status, as an
// XLSX workbook.
func (s *CallService) Export(ctx context.Context, status string, w io.Writer) error {
	records, err := s.calls.List(ctx, status)
	if err != nil {
		return err
	}
	f, err := buildHistoryWorkbook(records)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildHistoryWorkbook(records []models.CallRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	fail := func(format string, err error) (*excelize.File, error) {
		_ = f.Close()
		return nil, fmt.Errorf(format, err)
	}

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fail("create sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fail("create header style: %w", err)
	}

	for col, h := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fail("header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fail("set header: %w", err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return fail("style header: %w", err)
		}
	}
	for col, width := range exportColumnWidths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fail("column name: %w", err)
		}
		if err := f.SetColWidth(exportSheet, name, name, width); err != nil {
			return fail("column width: %w", err)
		}
	}

	for i, rec := range records {
		row := []any{
			rec.ID,
			rec.Code,
			rec.Room,
			rec.Bed,
			rec.Display,
			rec.Status,
			rec.Time,
			rec.Timestamp,
			rec.ResetTime,
			rec.ResetTimeStr,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fail("row cell: %w", err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fail("write row: %w", err)
		}
	}
	return f, nil
}
