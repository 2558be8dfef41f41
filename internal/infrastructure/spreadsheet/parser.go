package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/xuri/excelize/v2"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

const (
	MIMEExcelLegacy = "application/vnd.ms-excel"
	MIMEExcel       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMECSV         = "text/csv"
)

// Supported reports whether the declared media type is one of the accepted
// spreadsheet/CSV types. This gate runs before any decode attempt.
func Supported(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case MIMEExcelLegacy, MIMEExcel, MIMECSV:
		return true
	}
	return false
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes an uploaded spreadsheet payload into an ordered row sequence.
// The first sheet's first row is the schema; header names are normalized to
// lower case so callers can match columns without caring about cell casing.
func (p *Parser) Parse(contentType string, payload []byte) (domain.Sheet, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !Supported(mediaType) {
		return domain.Sheet{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, contentType)
	}

	var rows [][]string
	if mediaType == MIMECSV {
		rows, err = readCSV(payload)
	} else {
		rows, err = readWorkbook(payload)
	}
	if err != nil {
		return domain.Sheet{}, fmt.Errorf("%w: %v", domain.ErrMalformedSpreadsheet, err)
	}

	if len(rows) == 0 {
		return domain.Sheet{}, fmt.Errorf("%w: no header row", domain.ErrMalformedSpreadsheet)
	}

	header := make([]string, 0, len(rows[0]))
	for _, cell := range rows[0] {
		header = append(header, NormalizeColumn(cell))
	}

	records := make([]domain.RawRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(domain.RawRow, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				record[name] = strings.TrimSpace(row[i])
			} else {
				record[name] = ""
			}
		}
		records = append(records, record)
	}

	return domain.Sheet{Header: header, Rows: records}, nil
}

func readWorkbook(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

func readCSV(payload []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeColumn lower-cases and trims a header cell so schema lookups are
// insensitive to how operators typed the column names.
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
