package shareholder

type GeocodeStatus string

const (
	GeocodeOK           GeocodeStatus = "ok"
	GeocodeNoMatch      GeocodeStatus = "no_match"
	GeocodeServiceError GeocodeStatus = "service_error"
)

// GeocodeResult is the normalized outcome of a single address lookup.
// Coordinates stay in the string form the service returned so they survive
// round-trips without float re-serialization drift.
type GeocodeResult struct {
	Status GeocodeStatus
	Lat    string
	Lng    string
}

// FailureReason distinguishes a no-hit lookup from a service fault in the
// failure ledger. Both count as a failed row during a run.
type FailureReason string

const (
	ReasonNoMatch      FailureReason = "no_match"
	ReasonServiceError FailureReason = "service_error"
)

func ReasonFor(status GeocodeStatus) FailureReason {
	if status == GeocodeNoMatch {
		return ReasonNoMatch
	}
	return ReasonServiceError
}

// FailedRow pairs a row with the reason its geocode attempt failed.
type FailedRow struct {
	Row    Shareholder
	Reason FailureReason
}
