package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/response"
)

// Capability names accepted by RequireCapability. They map onto the fields
// of models.CapabilitySet.
const (
	CapManageUniversities = "manage-universities"
	CapManageFaculties    = "manage-faculties"
	CapManageCareers      = "manage-careers"
	CapManageCourses      = "manage-courses"
	CapManageCommissions  = "manage-commissions"
	CapManageRubrics      = "manage-rubrics"
	CapManageUsers        = "manage-users"
	CapReviewSubmissions  = "review-submissions"
	CapSubmitWork         = "submit-work"
)

// RequireCapability blocks the request unless the authenticated role holds
// every listed capability. Scope checks are the services' concern; this
// middleware only gates by capability.
func RequireCapability(caps ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		set := models.Capabilities(claims.Role)
		for _, cap := range caps {
			if !hasCapability(set, cap) {
				response.Error(c, appErrors.ErrForbidden)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// RequireAdminFamily blocks roles without any management capability.
func RequireAdminFamily() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !models.AdminFamily(claims.Role) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles allows only the listed roles through.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func hasCapability(set models.CapabilitySet, cap string) bool {
	switch cap {
	case CapManageUniversities:
		return set.ManageUniversities
	case CapManageFaculties:
		return set.ManageFaculties
	case CapManageCareers:
		return set.ManageCareers
	case CapManageCourses:
		return set.ManageCourses
	case CapManageCommissions:
		return set.ManageCommissions
	case CapManageRubrics:
		return set.ManageRubrics
	case CapManageUsers:
		return set.ManageUsers
	case CapReviewSubmissions:
		return set.ReviewSubmissions
	case CapSubmitWork:
		return set.SubmitWork
	}
	return false
}
