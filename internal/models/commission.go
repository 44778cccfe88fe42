package models

import (
	"time"

	"github.com/lib/pq"
)

// Commission is a yearly offering of a course within a career. It carries
// the fully denormalized ancestor chain, and the list of professors
// assigned to it.
type Commission struct {
	ID             string         `db:"id" json:"id"`
	Code           string         `db:"code" json:"commission_id"`
	Name           string         `db:"name" json:"name"`
	Year           int            `db:"year" json:"year"`
	CourseCode     string         `db:"course_code" json:"course_id"`
	CareerCode     string         `db:"career_code" json:"career_id"`
	FacultyCode    string         `db:"faculty_code" json:"faculty_id"`
	UniversityCode string         `db:"university_code" json:"university_id"`
	ProfessorIDs   pq.StringArray `db:"professor_ids" json:"professor_ids"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CommissionFilter captures supported filters for listing commissions.
type CommissionFilter struct {
	UniversityCode string
	FacultyCode    string
	CareerCode     string
	CourseCode     string
	ProfessorID    string
	Year           int
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
