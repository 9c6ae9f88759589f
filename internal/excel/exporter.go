package excel

import (
	"fmt"
	"strings"

	"github.com/example/studydeck/pkg/models"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []interface{}{"Question", "Answer", "Kind", "Choices", "Source", "Page", "Due", "Interval", "Easiness"}

// ExportItems writes items to an xlsx file in the layout ImportItems reads by default.
// The schedule columns after Page are informational and ignored on import.
func ExportItems(path string, items []models.ReviewItem) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := DefaultImportConfig().SheetName
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, item := range items {
		row := []interface{}{
			item.Question,
			item.Answer,
			string(item.Kind),
			strings.Join(item.Choices, " | "),
			item.Source,
			item.Location,
			item.DueDate.String(),
			item.IntervalDays,
			item.Easiness,
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}
