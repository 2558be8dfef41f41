package shareholder

import "errors"

var (
	ErrUnsupportedFormat    = errors.New("unsupported file format")
	ErrMalformedSpreadsheet = errors.New("malformed spreadsheet")
	ErrMissingColumn        = errors.New("missing required column")
	ErrServiceUnavailable   = errors.New("geocoding service unavailable")
	ErrRunNotFound          = errors.New("import run not found")
)
