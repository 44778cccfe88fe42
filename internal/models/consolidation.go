package models

import (
	"encoding/json"
	"time"
)

// ConsolidationMode selects the extension set used when bundling a project.
type ConsolidationMode string

const (
	ModeJava      ConsolidationMode = "java"
	ModeJSTS      ConsolidationMode = "jsts"
	ModePython    ConsolidationMode = "python"
	ModeWeb       ConsolidationMode = "web"
	ModeUniversal ConsolidationMode = "universal"
	ModeCustom    ConsolidationMode = "custom"
)

// ValidConsolidationMode reports whether m is a known mode.
func ValidConsolidationMode(m ConsolidationMode) bool {
	switch m {
	case ModeJava, ModeJSTS, ModePython, ModeWeb, ModeUniversal, ModeCustom:
		return true
	}
	return false
}

// ConsolidationJobStatus tracks an asynchronous batch consolidation.
type ConsolidationJobStatus string

const (
	ConsolidationQueued     ConsolidationJobStatus = "queued"
	ConsolidationProcessing ConsolidationJobStatus = "processing"
	ConsolidationCompleted  ConsolidationJobStatus = "completed"
	ConsolidationFailed     ConsolidationJobStatus = "failed"
)

// ConsolidationJob is the persisted record of one batch consolidation run.
// Results holds the per-student outcome rows serialized as JSON; OutputPath
// points at the ZIP of consolidated texts on local storage.
type ConsolidationJob struct {
	ID            string                 `db:"id" json:"id"`
	Status        ConsolidationJobStatus `db:"status" json:"status"`
	Mode          ConsolidationMode      `db:"mode" json:"mode"`
	Extensions    string                 `db:"extensions" json:"extensions,omitempty"`
	IncludeTests  bool                   `db:"include_tests" json:"include_tests"`
	ArchiveName   string                 `db:"archive_name" json:"archive_name"`
	TotalProjects int                    `db:"total_projects" json:"total_projects"`
	Succeeded     int                    `db:"succeeded" json:"succeeded"`
	Failed        int                    `db:"failed" json:"failed"`
	Results       json.RawMessage        `db:"results" json:"results,omitempty"`
	Similarity    json.RawMessage        `db:"similarity" json:"similarity,omitempty"`
	OutputPath    *string                `db:"output_path" json:"-"`
	ErrorMessage  *string                `db:"error_message" json:"error_message,omitempty"`
	RequestedBy   *string                `db:"requested_by" json:"requested_by,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
	StartedAt     *time.Time             `db:"started_at" json:"started_at,omitempty"`
	FinishedAt    *time.Time             `db:"finished_at" json:"finished_at,omitempty"`
}

// StudentResult is the outcome of consolidating one student's project
// inside a batch.
type StudentResult struct {
	Student   string `json:"student"`
	Status    string `json:"status"` // success, error or warning
	FileCount int    `json:"file_count"`
	SizeBytes int64  `json:"size_bytes"`
	Message   string `json:"message,omitempty"`
}

// SimilarityReport summarises cross-project duplication found in a batch.
type SimilarityReport struct {
	IdenticalGroups [][]string       `json:"identical_groups,omitempty"`
	PartialCopies   []PartialCopy    `json:"partial_copies,omitempty"`
	DuplicatedFiles []DuplicatedFile `json:"duplicated_files,omitempty"`
}

// PartialCopy is a pair of projects sharing a suspicious fraction of files.
type PartialCopy struct {
	StudentA    string  `json:"student_a"`
	StudentB    string  `json:"student_b"`
	Similarity  float64 `json:"similarity"`
	SharedFiles int     `json:"shared_files"`
}

// DuplicatedFile is a single file content found in multiple projects.
type DuplicatedFile struct {
	FileName string   `json:"file_name"`
	Students []string `json:"students"`
}
