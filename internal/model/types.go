package model

import "strings"

// PredictionRequest carries the single feature accepted by the predictor.
// A pointer keeps "missing" distinguishable from an explicit zero during binding.
type PredictionRequest struct {
	ExperienceYears *float64 `json:"experience_years" binding:"required"`
}

// Years returns the bound feature value. It must only be called after binding succeeded.
func (r PredictionRequest) Years() float64 {
	if r.ExperienceYears == nil {
		return 0
	}
	return *r.ExperienceYears
}

// PredictionResult is returned for every successful inference.
type PredictionResult struct {
	ExperienceYears float64 `json:"experience_years"`
	PredictedSalary float64 `json:"predicted_salary"`
}

// Destination selects where prediction records are written.
type Destination string

const (
	DestinationLocal   Destination = "local"
	DestinationConsole Destination = "console"
	// DestinationRemote is reserved; it currently behaves like DestinationConsole.
	DestinationRemote Destination = "remote"
)

// ParseDestination normalizes a configured destination selector.
// Unknown values are kept as-is; only "local" persists records.
func ParseDestination(s string) Destination {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLogDestination
	}
	return Destination(s)
}

// IsLocal reports whether records are persisted to the local log file.
func (d Destination) IsLocal() bool { return d == DestinationLocal }

func (d Destination) String() string { return string(d) }
