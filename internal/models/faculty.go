package models

import "time"

// Faculty belongs to a university. Its code is unique within that
// university only; two universities may both have a "ciencias" faculty.
type Faculty struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"faculty_id"`
	Name           string    `db:"name" json:"name"`
	UniversityCode string    `db:"university_code" json:"university_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FacultyFilter captures supported filters for listing faculties.
type FacultyFilter struct {
	UniversityCode string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
