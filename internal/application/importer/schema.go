package importer

import (
	"fmt"
	"strconv"
	"strings"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

// mapSheet validates the parsed schema and maps raw rows onto shareholder
// records. Missing required columns fail here, right after parsing, instead
// of surfacing as blank fields deep in the pipeline.
func mapSheet(sheet domain.Sheet, addressColumn string) ([]domain.Shareholder, error) {
	present := make(map[string]bool, len(sheet.Header))
	for _, name := range sheet.Header {
		present[name] = true
	}

	for _, required := range []string{addressColumn, domain.ColName, domain.ColShares, domain.ColID} {
		if !present[required] {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumn, required)
		}
	}

	rows := make([]domain.Shareholder, 0, len(sheet.Rows))
	for _, raw := range sheet.Rows {
		rows = append(rows, domain.Shareholder{
			ID:             raw[domain.ColID],
			Name:           raw[domain.ColName],
			Address:        raw[addressColumn],
			DisplayAddress: raw[domain.ColDisplayAddress],
			Shares:         parseShares(raw[domain.ColShares]),
			Status:         domain.ParseStatus(raw[domain.ColStatus]),
			Memo:           raw[domain.ColMemo],
			Company:        raw[domain.ColCompany],
			MarkerCategory: raw[domain.ColMarkerCategory],
		})
	}
	return rows, nil
}

// Share counts default to 0 when absent or unparsable; negative values are
// clamped the same way.
func parseShares(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
