package models

import "time"

// Course is scoped to a university, not to a career: the association with a
// career happens through commissions. Year is part of the identity
// suggestion ("2025-programacion-1") but remains editable metadata.
type Course struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"course_id"`
	Name           string    `db:"name" json:"name"`
	Year           int       `db:"year" json:"year"`
	UniversityCode string    `db:"university_code" json:"university_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	UniversityCode string
	Year           int
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
