package models

// Option is a single selectable entry in a cascading hierarchy dropdown.
type Option struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// HierarchySelection is the tuple of active ancestor codes scoping an
// option-list request. Empty strings mean "not selected".
type HierarchySelection struct {
	UniversityCode string
	FacultyCode    string
	CareerCode     string
	CourseCode     string
}
