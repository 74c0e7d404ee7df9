// Package export renders the product list as a spreadsheet.
package export

import (
	"fmt"
	"html"
	"io"
	"time"

	"shelflife/internal/dates"
	"shelflife/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single worksheet in the export.
const SheetName = "المنتجات"

var header = []interface{}{"اسم المنتج", "تاريخ الإنتاج", "تاريخ الانتهاء", "الأيام المتبقية"}

// WriteProducts writes products to w as an XLSX workbook. The last column
// holds the days left until expiry relative to now, or is empty when the
// stored date does not parse.
func WriteProducts(w io.Writer, products []models.Product, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range products {
		row := []interface{}{html.UnescapeString(p.Name), p.ProductionDate, p.ExpiryDate}
		if expiry, err := dates.Parse(p.ExpiryDate, now.Location()); err == nil {
			row = append(row, dates.DaysBetween(now, expiry))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "D", 16); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
