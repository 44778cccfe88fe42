package models

// ScopeLevel identifies the hierarchy level a role is confined to.
type ScopeLevel string

const (
	ScopeGlobal     ScopeLevel = "global"
	ScopeUniversity ScopeLevel = "university"
	ScopeFaculty    ScopeLevel = "faculty"
	ScopeCourses    ScopeLevel = "courses"
	ScopeNone       ScopeLevel = "none"
)

// CapabilitySet declares what a role may do. It replaces per-endpoint role
// string comparisons: middleware and services consult the table instead.
type CapabilitySet struct {
	ManageUniversities bool
	ManageFaculties    bool
	ManageCareers      bool
	ManageCourses      bool
	ManageCommissions  bool
	ManageRubrics      bool
	ManageUsers        bool
	ReviewSubmissions  bool
	SubmitWork         bool
	Scope              ScopeLevel
}

// RolePermissions is the single source of truth mapping each role to its
// capability set.
var RolePermissions = map[UserRole]CapabilitySet{
	RoleSuperAdmin: {
		ManageUniversities: true,
		ManageFaculties:    true,
		ManageCareers:      true,
		ManageCourses:      true,
		ManageCommissions:  true,
		ManageRubrics:      true,
		ManageUsers:        true,
		ReviewSubmissions:  true,
		SubmitWork:         true,
		Scope:              ScopeGlobal,
	},
	RoleAdmin: {
		ManageUniversities: true,
		ManageFaculties:    true,
		ManageCareers:      true,
		ManageCourses:      true,
		ManageCommissions:  true,
		ManageRubrics:      true,
		ManageUsers:        true,
		ReviewSubmissions:  true,
		SubmitWork:         true,
		Scope:              ScopeGlobal,
	},
	RoleUniversityAdmin: {
		ManageFaculties:   true,
		ManageCareers:     true,
		ManageCourses:     true,
		ManageCommissions: true,
		ManageRubrics:     true,
		ManageUsers:       true,
		ReviewSubmissions: true,
		Scope:             ScopeUniversity,
	},
	RoleFacultyAdmin: {
		ManageCareers:     true,
		ManageCommissions: true,
		ManageRubrics:     true,
		ManageUsers:       true,
		ReviewSubmissions: true,
		Scope:             ScopeFaculty,
	},
	RoleProfessorAdmin: {
		ManageCommissions: true,
		ManageRubrics:     true,
		ReviewSubmissions: true,
		Scope:             ScopeCourses,
	},
	RoleProfessor: {
		ManageRubrics:     true,
		ReviewSubmissions: true,
		Scope:             ScopeCourses,
	},
	RoleUser: {
		SubmitWork: true,
		Scope:      ScopeNone,
	},
}

// Capabilities returns the capability set for a role; unknown roles get an
// empty set.
func Capabilities(role UserRole) CapabilitySet {
	return RolePermissions[role]
}

// AdminFamily reports whether the role may access the admin surface at all.
func AdminFamily(role UserRole) bool {
	caps := Capabilities(role)
	return caps.ManageUniversities || caps.ManageFaculties || caps.ManageCareers ||
		caps.ManageCourses || caps.ManageCommissions || caps.ManageRubrics || caps.ManageUsers
}
