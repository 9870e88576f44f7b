package models

import (
	"time"

	"github.com/noah-isme/dmr-api/pkg/pagerange"
)

// MIMETypePDF is the only content type that can be served page by page.
const MIMETypePDF = "application/pdf"

// File is an uploaded clinical document attached to a patient.
type File struct {
	ID                 string    `db:"id" json:"id"`
	PatientID          string    `db:"patient_id" json:"patient"`
	DisplayName        string    `db:"display_name" json:"display_name"`
	Category           string    `db:"category" json:"category"`
	StorageKey         string    `db:"storage_key" json:"-"`
	MimeType           string    `db:"mime_type" json:"mime_type"`
	SizeBytes          int64     `db:"size_bytes" json:"size_bytes"`
	RequiresPagination bool      `db:"requires_pagination" json:"requires_pagination"`
	UploadedBy         *string   `db:"uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// ApprovedFile grants visibility of a File either through a completed
// diagnostic request or through a manual release to one account.
type ApprovedFile struct {
	ID             string    `db:"id" json:"id"`
	FileID         string    `db:"file_id" json:"file"`
	RequestID      *string   `db:"request_id" json:"request,omitempty"`
	ReleasedToUser *string   `db:"released_to_user" json:"released_to_user,omitempty"`
	ReleasedBy     *string   `db:"released_by" json:"released_by,omitempty"`
	PageRange      string    `db:"page_range" json:"page_range"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`

	File *File `db:"-" json:"file_detail,omitempty"`
}

// IsManualRelease reports whether the grant was issued outside a request.
func (a *ApprovedFile) IsManualRelease() bool {
	return a != nil && a.ReleasedToUser != nil && a.RequestID == nil
}

// FileGrant is the resolved access a caller holds on one file.
type FileGrant struct {
	FileID string
	// Unrestricted grants the whole document regardless of pagination.
	Unrestricted bool
	Pages        pagerange.Range
}

// Allows reports whether the grant covers the given page.
func (g *FileGrant) Allows(page int) bool {
	if g == nil {
		return false
	}
	return g.Unrestricted || g.Pages.Contains(page)
}

// FileAccess pairs a file with the caller's grant on it.
type FileAccess struct {
	File  *File      `json:"file"`
	Grant *FileGrant `json:"-"`
}
