package dto

// UploadFileRequest contains metadata submitted alongside a file upload.
type UploadFileRequest struct {
	DisplayName        string `form:"display_name" validate:"max=255"`
	Category           string `form:"category" validate:"max=100"`
	RequiresPagination bool   `form:"requires_pagination"`
}

// UpdateFileRequest edits file metadata.
type UpdateFileRequest struct {
	DisplayName        *string `json:"display_name" validate:"omitempty,min=1,max=255"`
	Category           *string `json:"category" validate:"omitempty,max=100"`
	RequiresPagination *bool   `json:"requires_pagination"`
}

// ManualReleaseRequest releases one file to student groups outside any request.
type ManualReleaseRequest struct {
	StudentGroupIDs []string `json:"student_group_ids" validate:"required,min=1,dive,uuid"`
	PageRange       string   `json:"page_range"`
}

// UpdateReleaseRequest changes the page range of an existing grant.
type UpdateReleaseRequest struct {
	PageRange string `json:"page_range"`
}

// FileViewQuery selects pages of a paginated file.
type FileViewQuery struct {
	Page  string `form:"page"`
	Pages string `form:"pages"`
}
