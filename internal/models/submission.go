package models

import "time"

// SubmissionStatus tracks a submission through the correction workflow.
type SubmissionStatus string

const (
	SubmissionUploaded          SubmissionStatus = "uploaded"
	SubmissionPendingCorrection SubmissionStatus = "pending-correction"
	SubmissionCorrected         SubmissionStatus = "corrected"
	SubmissionFailed            SubmissionStatus = "failed"
)

// Correction carries the grading outcome attached to a corrected submission.
type Correction struct {
	Grade   *float64 `json:"grade,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// Submission is a student's uploaded project for one rubric of one
// commission. The stored file lives on local storage; StoragePath is the
// relative location there.
type Submission struct {
	ID             string           `db:"id" json:"id"`
	Code           string           `db:"code" json:"submission_id"`
	StudentName    string           `db:"student_name" json:"student_name"`
	FileName       string           `db:"file_name" json:"file_name"`
	StoragePath    string           `db:"storage_path" json:"-"`
	SizeBytes      int64            `db:"size_bytes" json:"size_bytes"`
	MimeType       string           `db:"mime_type" json:"mime_type"`
	Status         SubmissionStatus `db:"status" json:"status"`
	Grade          *float64         `db:"grade" json:"grade,omitempty"`
	Summary        *string          `db:"summary" json:"summary,omitempty"`
	RubricCode     string           `db:"rubric_code" json:"rubric_id"`
	CommissionCode string           `db:"commission_code" json:"commission_id"`
	UploadedBy     *string          `db:"uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// ValidSubmissionStatus reports whether s is a known status.
func ValidSubmissionStatus(s SubmissionStatus) bool {
	switch s {
	case SubmissionUploaded, SubmissionPendingCorrection, SubmissionCorrected, SubmissionFailed:
		return true
	}
	return false
}

// ValidSubmissionTransition enforces the correction workflow ordering.
func ValidSubmissionTransition(from, to SubmissionStatus) bool {
	switch from {
	case SubmissionUploaded:
		return to == SubmissionPendingCorrection || to == SubmissionFailed
	case SubmissionPendingCorrection:
		return to == SubmissionCorrected || to == SubmissionFailed
	case SubmissionFailed:
		return to == SubmissionPendingCorrection
	}
	return false
}

// SubmissionFilter captures supported filters for listing submissions.
type SubmissionFilter struct {
	RubricCode     string
	CommissionCode string
	Status         SubmissionStatus
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
