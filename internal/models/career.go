package models

import "time"

// Career belongs to a faculty; the university code is denormalized so list
// queries can filter by either ancestor without joins.
type Career struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"career_id"`
	Name           string    `db:"name" json:"name"`
	FacultyCode    string    `db:"faculty_code" json:"faculty_id"`
	UniversityCode string    `db:"university_code" json:"university_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CareerFilter captures supported filters for listing careers.
type CareerFilter struct {
	UniversityCode string
	FacultyCode    string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
