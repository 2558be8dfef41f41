package shareholder

// Spreadsheet column names shared by the upload schema and the failure
// export. The geocode source column drifted between "address" and
// "latlngaddress" in older imports; it is a single configuration value now,
// with ColAddress as the default.
const (
	ColID             = "id"
	ColName           = "name"
	ColAddress        = "address"
	ColDisplayAddress = "displayaddress"
	ColShares         = "shares"
	ColStatus         = "status"
	ColMemo           = "memo"
	ColCompany        = "company"
	ColMarkerCategory = "markercategory"
	ColFailureReason  = "failreason"
)
