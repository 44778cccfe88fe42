package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole enumerates the roles recognised by the platform. Scoped admin
// roles carry a hierarchy reference restricting what they may manage.
type UserRole string

const (
	RoleSuperAdmin      UserRole = "super-admin"
	RoleAdmin           UserRole = "admin"
	RoleUniversityAdmin UserRole = "university-admin"
	RoleFacultyAdmin    UserRole = "faculty-admin"
	RoleProfessorAdmin  UserRole = "professor-admin"
	RoleProfessor       UserRole = "professor"
	RoleUser            UserRole = "user"
)

// SeedAdminUsername is the bootstrap account whose username may never change.
const SeedAdminUsername = "admin"

// User represents an application user stored in the users table. Deletion
// is logical: DeletedAt is set instead of removing the row, and deleted
// users can be restored.
type User struct {
	ID           string         `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FullName     string         `db:"full_name" json:"full_name"`
	Email        string         `db:"email" json:"email"`
	Role         UserRole       `db:"role" json:"role"`
	UniversityID *string        `db:"university_id" json:"university_id,omitempty"`
	FacultyID    *string        `db:"faculty_id" json:"faculty_id,omitempty"`
	CourseIDs    pq.StringArray `db:"course_ids" json:"course_ids,omitempty"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	DeletedAt    *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Deleted reports whether the user is soft-deleted.
func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role           *UserRole
	UniversityID   string
	FacultyID      string
	IncludeDeleted bool
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
