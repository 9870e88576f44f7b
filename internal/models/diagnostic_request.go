package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DiagnosticRequestKind distinguishes imaging from laboratory requests.
type DiagnosticRequestKind string

const (
	RequestKindImaging   DiagnosticRequestKind = "imaging"
	RequestKindBloodTest DiagnosticRequestKind = "blood_test"
)

// Valid reports whether the kind is known.
func (k DiagnosticRequestKind) Valid() bool {
	return k == RequestKindImaging || k == RequestKindBloodTest
}

// RequestStatus is the lifecycle state of a diagnostic request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusRejected   RequestStatus = "rejected"
	StatusCancelled  RequestStatus = "cancelled"
)

// RequestStatuses lists every status in lifecycle order.
func RequestStatuses() []RequestStatus {
	return []RequestStatus{StatusPending, StatusInProgress, StatusCompleted, StatusRejected, StatusCancelled}
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusRejected, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusRejected, StatusCancelled},
	// completed -> completed re-releases the approved files
	StatusCompleted: {StatusCompleted},
}

// Valid reports whether the status is known.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves the status.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StringList is a JSON encoded list of strings stored in a JSONB column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal string list: %w", err)
	}
	*l = out
	return nil
}

// DiagnosticRequest is an imaging or blood test order placed for a patient.
type DiagnosticRequest struct {
	ID                          string                `db:"id" json:"id"`
	Kind                        DiagnosticRequestKind `db:"kind" json:"kind"`
	PatientID                   string                `db:"patient_id" json:"patient"`
	UserID                      string                `db:"user_id" json:"user"`
	TestType                    string                `db:"test_type" json:"test_type"`
	TestTypes                   StringList            `db:"test_types" json:"test_types"`
	Details                     string                `db:"details" json:"details"`
	ImagingFocus                string                `db:"imaging_focus" json:"imaging_focus"`
	InfectionControlPrecautions string                `db:"infection_control_precautions" json:"infection_control_precautions"`
	RequesterName               string                `db:"requester_name" json:"requester_name"`
	RequesterRole               string                `db:"requester_role" json:"requester_role"`
	Status                      RequestStatus         `db:"status" json:"status"`
	StatusNote                  string                `db:"status_note" json:"status_note"`
	CreatedAt                   time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt                   time.Time             `db:"updated_at" json:"updated_at"`

	ApprovedFiles []*ApprovedFile `db:"-" json:"approved_files,omitempty"`
}

// DiagnosticRequestFilter captures listing criteria.
type DiagnosticRequestFilter struct {
	Status    *RequestStatus
	Kind      *DiagnosticRequestKind
	PatientID string
	UserID    string
	Page      int
	PageSize  int
}

// StatusCount is one row of a grouped status count.
type StatusCount struct {
	Kind   DiagnosticRequestKind `db:"kind" json:"kind"`
	Status RequestStatus         `db:"status" json:"status"`
	Count  int                   `db:"count" json:"count"`
}

// DiagnosticRequestStats summarises requests by status and kind.
type DiagnosticRequestStats struct {
	Total    int                                             `json:"total"`
	ByStatus map[RequestStatus]int                           `json:"by_status"`
	ByKind   map[DiagnosticRequestKind]map[RequestStatus]int `json:"by_kind"`
}

// NewDiagnosticRequestStats folds grouped counts into a summary with every status present.
func NewDiagnosticRequestStats(rows []StatusCount) *DiagnosticRequestStats {
	stats := &DiagnosticRequestStats{
		ByStatus: make(map[RequestStatus]int),
		ByKind:   make(map[DiagnosticRequestKind]map[RequestStatus]int),
	}
	for _, kind := range []DiagnosticRequestKind{RequestKindImaging, RequestKindBloodTest} {
		stats.ByKind[kind] = make(map[RequestStatus]int)
		for _, s := range RequestStatuses() {
			stats.ByKind[kind][s] = 0
		}
	}
	for _, s := range RequestStatuses() {
		stats.ByStatus[s] = 0
	}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByStatus[row.Status] += row.Count
		if _, ok := stats.ByKind[row.Kind]; !ok {
			stats.ByKind[row.Kind] = make(map[RequestStatus]int)
		}
		stats.ByKind[row.Kind][row.Status] += row.Count
	}
	return stats
}
