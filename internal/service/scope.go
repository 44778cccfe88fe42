package service

import (
	"strings"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
)

// scopeAllows reports whether the caller's assignment covers the given
// hierarchy coordinates. Nil claims means an internal call with no
// restriction. Course-scoped roles additionally match against courseCode
// when one is provided.
func scopeAllows(claims *models.JWTClaims, universityCode, facultyCode, courseCode string) bool {
	if claims == nil {
		return true
	}

	caps := models.Capabilities(claims.Role)
	switch caps.Scope {
	case models.ScopeGlobal:
		return true
	case models.ScopeUniversity:
		return claims.UniversityID != nil && strings.EqualFold(*claims.UniversityID, universityCode)
	case models.ScopeFaculty:
		if claims.UniversityID == nil || !strings.EqualFold(*claims.UniversityID, universityCode) {
			return false
		}
		if facultyCode == "" {
			return true
		}
		return claims.FacultyID != nil && strings.EqualFold(*claims.FacultyID, facultyCode)
	case models.ScopeCourses:
		if courseCode == "" {
			return false
		}
		for _, c := range claims.CourseIDs {
			if strings.EqualFold(c, courseCode) {
				return true
			}
		}
		return false
	}
	return false
}

// requireScope converts a failed scope check into the canonical error.
func requireScope(claims *models.JWTClaims, universityCode, facultyCode, courseCode string) error {
	if !scopeAllows(claims, universityCode, facultyCode, courseCode) {
		return appErrors.Clone(appErrors.ErrScopeViolation, "operation outside the caller's assigned scope")
	}
	return nil
}
