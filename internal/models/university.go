package models

import "time"

// University is the root of the academic hierarchy. Code is the
// human-readable identifier (e.g. "utn-frm") referenced by every descendant;
// it is immutable once created.
type University struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"university_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UniversityFilter captures supported filters for listing universities.
type UniversityFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
