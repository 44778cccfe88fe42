package models

import (
	"encoding/json"
	"time"
)

// RubricType enumerates the evaluation instances a rubric can grade.
type RubricType string

const (
	RubricTP             RubricType = "tp"
	RubricParcial1       RubricType = "parcial-1"
	RubricParcial2       RubricType = "parcial-2"
	RubricRecuperatorio1 RubricType = "recuperatorio-1"
	RubricRecuperatorio2 RubricType = "recuperatorio-2"
	RubricFinal          RubricType = "final"
	RubricGlobal         RubricType = "global"
)

// RubricSource records how the grading criteria were produced.
type RubricSource string

const (
	RubricSourceJSON RubricSource = "json"
	RubricSourcePDF  RubricSource = "pdf"
)

// Rubric holds the grading criteria for one evaluation of a commission. The
// criteria themselves are an opaque JSON blob authored (or AI-generated)
// client-side; the API validates shape, not content.
type Rubric struct {
	ID             string          `db:"id" json:"id"`
	Code           string          `db:"code" json:"rubric_id"`
	Name           string          `db:"name" json:"name"`
	Type           RubricType      `db:"rubric_type" json:"rubric_type"`
	Number         int             `db:"rubric_number" json:"rubric_number"`
	Year           int             `db:"year" json:"year"`
	Criteria       json.RawMessage `db:"criteria" json:"rubric_json"`
	Source         RubricSource    `db:"source" json:"source"`
	CommissionCode string          `db:"commission_code" json:"commission_id"`
	CourseCode     string          `db:"course_code" json:"course_id"`
	CareerCode     string          `db:"career_code" json:"career_id"`
	FacultyCode    string          `db:"faculty_code" json:"faculty_id"`
	UniversityCode string          `db:"university_code" json:"university_id"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ValidRubricType reports whether t is a known rubric type.
func ValidRubricType(t RubricType) bool {
	switch t {
	case RubricTP, RubricParcial1, RubricParcial2, RubricRecuperatorio1, RubricRecuperatorio2, RubricFinal, RubricGlobal:
		return true
	}
	return false
}

// RubricFilter captures supported filters for listing rubrics.
type RubricFilter struct {
	UniversityCode string
	FacultyCode    string
	CareerCode     string
	CourseCode     string
	CommissionCode string
	Type           RubricType
	Year           int
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
