package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bill-tracker/internal/model"
)

const (
	sheetName   = "Bills"
	maxColWidth = 50
	// timestampLayout names artifacts by generation time.
	timestampLayout = "20060102_150405"
)

// ArtifactName returns the per-jurisdiction artifact filename for a
// crawl that finished at ts.
func ArtifactName(code string, ts time.Time) string {
	return fmt.Sprintf("bills_%s_%s.xlsx", code, ts.Format(timestampLayout))
}

// ArtifactPath joins dir and ArtifactName.
func ArtifactPath(dir, code string, ts time.Time) string {
	return filepath.Join(dir, ArtifactName(code, ts))
}

// ConsolidatedName returns the merged artifact filename for a merge run
// at ts.
func ConsolidatedName(ts time.Time) string {
	return fmt.Sprintf("consolidated_bills_%s.xlsx", ts.Format(timestampLayout))
}

// WriteWorkbook writes records to an xlsx workbook at path, creating
// parent directories as needed. Column widths track content up to a cap
// so the sheet stays readable.
func WriteWorkbook(path string, records []model.BillRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create output dir for %s", path)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	widths := make([]int, len(model.Columns))
	header := sheet.AddRow()
	for i, col := range model.Columns {
		header.AddCell().SetString(col)
		widths[i] = len(col)
	}

	for _, record := range records {
		row := sheet.AddRow()
		for i, value := range record.Row() {
			row.AddCell().SetString(value)
			if len(value) > widths[i] {
				widths[i] = len(value)
			}
		}
	}

	for i, w := range widths {
		if w > maxColWidth {
			w = maxColWidth
		}
		sheet.SetColWidth(i, i, float64(w+2))
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// ReadWorkbook loads the records of a previously written artifact.
func ReadWorkbook(path string) ([]model.BillRecord, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: open %s", path)
	}

	sheet, ok := file.Sheet[sheetName]
	if !ok {
		if len(file.Sheets) == 0 {
			return nil, eris.Errorf("report: %s has no sheets", path)
		}
		sheet = file.Sheets[0]
	}

	var records []model.BillRecord
	for i, row := range sheet.Rows {
		if i == 0 {
			continue // header
		}
		record, ok := rowToRecord(row)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func rowToRecord(row *xlsx.Row) (model.BillRecord, bool) {
	cells := make([]string, len(model.Columns))
	for j, cell := range row.Cells {
		if j >= len(cells) {
			break
		}
		cells[j] = cell.String()
	}

	record := model.BillRecord{
		Year:          cells[0],
		State:         cells[1],
		BillNumber:    cells[2],
		Title:         cells[3],
		Summary:       cells[4],
		Sponsors:      cells[5],
		LastAction:    cells[6],
		BillLink:      cells[7],
		CurrentStatus: cells[8],
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", cells[9]); err == nil {
		record.ExtractedAt = ts
	}

	// A row with neither a bill number nor a title carries nothing.
	if record.BillNumber == "" && record.Title == "" {
		return model.BillRecord{}, false
	}
	return record, true
}
