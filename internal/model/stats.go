package model

import "time"

// RunStatus represents the state of a cleaning run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one pass of the cleaning pipeline over a record stream.
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	Stats       *RunStats  `json:"stats,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunStats holds run-scoped counters maintained by the orchestrator.
type RunStats struct {
	TotalProcessed int `json:"total_processed"`
	UniqueItems    int `json:"unique_items"`
	DuplicateItems int `json:"duplicate_items"`
	MergedItems    int `json:"merged_items"`
	InvalidItems   int `json:"invalid_items"`

	// ErrorsByMunicipality tallies validation error codes per municipality
	// so an operator can audit gaps in the source data.
	ErrorsByMunicipality map[string]int `json:"errors_by_municipality,omitempty"`
	ErrorsByCode         map[string]int `json:"errors_by_code,omitempty"`

	// Confidence distribution of accepted records: high >= 0.8,
	// medium >= 0.6, low below.
	ConfidenceHigh   int `json:"confidence_high"`
	ConfidenceMedium int `json:"confidence_medium"`
	ConfidenceLow    int `json:"confidence_low"`

	ByExtractionMethod map[string]int `json:"by_extraction_method,omitempty"`
	ByCategory         map[string]int `json:"by_category,omitempty"`
}

// NewRunStats returns stats with all tally maps initialized.
func NewRunStats() *RunStats {
	return &RunStats{
		ErrorsByMunicipality: make(map[string]int),
		ErrorsByCode:         make(map[string]int),
		ByExtractionMethod:   make(map[string]int),
		ByCategory:           make(map[string]int),
	}
}

// DuplicateRate returns the fraction of processed records that matched
// an existing cluster. Zero when nothing was processed.
func (s *RunStats) DuplicateRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.DuplicateItems) / float64(s.TotalProcessed)
}

// ValidityRate returns the fraction of processed records with no
// validation errors.
func (s *RunStats) ValidityRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.TotalProcessed-s.InvalidItems) / float64(s.TotalProcessed)
}
