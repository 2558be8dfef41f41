package spreadsheet

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

var exportColumns = []string{
	domain.ColID,
	domain.ColName,
	domain.ColAddress,
	domain.ColDisplayAddress,
	domain.ColShares,
	domain.ColStatus,
	domain.ColMemo,
	domain.ColCompany,
	domain.ColMarkerCategory,
	domain.ColFailureReason,
}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes the failure set into an xlsx workbook, one row per entry in
// ledger order. Every row field is carried, not just address and id, so the
// exported sheet round-trips through Parse without losing data. An empty
// failure set yields a workbook with a single empty sheet.
func (e *Exporter) Export(failures []domain.FailedRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)

	if len(failures) > 0 {
		if err := writeRow(f, sheetName, 1, exportColumns); err != nil {
			return nil, err
		}
		for i, failure := range failures {
			if err := writeRow(f, sheetName, i+2, cellValues(failure)); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheetName string, rowNum int, values []string) error {
	for i, value := range values {
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name for index %d: %w", i, err)
		}
		cell := fmt.Sprintf("%s%d", colName, rowNum)
		if err := f.SetCellValue(sheetName, cell, value); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}

func cellValues(failure domain.FailedRow) []string {
	row := failure.Row
	return []string{
		row.ID,
		row.Name,
		row.Address,
		row.DisplayAddress,
		strconv.Itoa(row.Shares),
		string(row.Status),
		row.Memo,
		row.Company,
		row.MarkerCategory,
		string(failure.Reason),
	}
}
