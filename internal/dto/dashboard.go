package dto

import "github.com/noah-isme/dmr-api/internal/models"

// DashboardResponse is the instructor dashboard payload.
type DashboardResponse struct {
	Patients           int                            `json:"patients"`
	DiagnosticRequests *models.DiagnosticRequestStats `json:"diagnostic_requests"`
	PendingRequests    int                            `json:"pending_requests"`
	GeneratedAt        string                         `json:"generated_at"`
	// System is only populated for administrators.
	System *DashboardSystem `json:"system,omitempty"`
}

// DashboardSystem carries process level counters.
type DashboardSystem struct {
	CacheHitRatio      float64           `json:"cache_hit_ratio"`
	RequestsTotal      uint64            `json:"requests_total"`
	AverageRequestMs   float64           `json:"average_request_ms"`
	AverageDBQueryMs   float64           `json:"average_db_query_ms"`
	FileViewsByOutcome map[string]uint64 `json:"file_views_by_outcome"`
	Goroutines         int               `json:"goroutines"`
}
