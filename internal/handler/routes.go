package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/middleware"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/repository"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/service"
)

// Handlers bundles every HTTP handler plus the collaborators route
// registration needs.
type Handlers struct {
	Auth         *AuthHandler
	Universities *UniversityHandler
	Faculties    *FacultyHandler
	Careers      *CareerHandler
	Courses      *CourseHandler
	Commissions  *CommissionHandler
	Rubrics      *RubricHandler
	Users        *UserHandler
	Hierarchy    *HierarchyHandler
	Submissions  *SubmissionHandler
	Consolidator *ConsolidatorHandler
	Metrics      *MetricsHandler

	AuthService *service.AuthService
	UserRepo    *repository.UserRepository
}

// Register mounts every API route under the prefix. Signed-URL downloads
// stay outside the JWT group: the token in the query string is the grant.
func (h *Handlers) Register(r *gin.Engine, prefix string) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	api.GET("/submissions/download", middleware.OptionalJWT(h.AuthService), h.Submissions.Download)
	api.GET("/consolidator/download", middleware.OptionalJWT(h.AuthService), h.Consolidator.DownloadOutput)

	authed := api.Group("")
	authed.Use(middleware.JWT(h.AuthService))

	authedAuth := authed.Group("/auth")
	{
		authedAuth.POST("/logout", h.Auth.Logout)
		authedAuth.POST("/change-password", h.Auth.ChangePassword)
		authedAuth.GET("/me", h.Auth.Me)
	}

	hierarchy := authed.Group("/hierarchy")
	{
		hierarchy.GET("/universities", h.Hierarchy.Universities)
		hierarchy.GET("/faculties", h.Hierarchy.Faculties)
		hierarchy.GET("/careers", h.Hierarchy.Careers)
		hierarchy.GET("/courses", h.Hierarchy.Courses)
		hierarchy.GET("/commissions", h.Hierarchy.Commissions)
	}

	universities := authed.Group("/universities")
	{
		universities.GET("", h.Universities.List)
		universities.GET("/suggest-id", h.Universities.SuggestID)
		universities.GET("/check-id", h.Universities.CheckID)
		universities.GET("/:university_id", h.Universities.Get)

		manage := universities.Group("")
		manage.Use(middleware.RequireCapability(middleware.CapManageUniversities))
		{
			manage.POST("", middleware.Audit(h.UserRepo, models.AuditActionCreate, "university"), h.Universities.Create)
			manage.PUT("/:university_id", middleware.Audit(h.UserRepo, models.AuditActionUpdate, "university"), h.Universities.Update)
			manage.DELETE("/:university_id", middleware.Audit(h.UserRepo, models.AuditActionDelete, "university"), h.Universities.Delete)
		}

		faculties := universities.Group("/:university_id/faculties")
		{
			faculties.GET("", h.Faculties.List)
			faculties.GET("/check-id", h.Faculties.CheckID)
			faculties.GET("/:faculty_id", h.Faculties.Get)

			manageFaculties := faculties.Group("")
			manageFaculties.Use(middleware.RequireCapability(middleware.CapManageFaculties))
			{
				manageFaculties.POST("", middleware.Audit(h.UserRepo, models.AuditActionCreate, "faculty"), h.Faculties.Create)
				manageFaculties.PUT("/:faculty_id", middleware.Audit(h.UserRepo, models.AuditActionUpdate, "faculty"), h.Faculties.Update)
				manageFaculties.DELETE("/:faculty_id", middleware.Audit(h.UserRepo, models.AuditActionDelete, "faculty"), h.Faculties.Delete)
			}

			careers := faculties.Group("/:faculty_id/careers")
			{
				careers.GET("", h.Careers.List)
				careers.GET("/check-id", h.Careers.CheckID)
				careers.GET("/:career_id", h.Careers.Get)

				manageCareers := careers.Group("")
				manageCareers.Use(middleware.RequireCapability(middleware.CapManageCareers))
				{
					manageCareers.POST("", middleware.Audit(h.UserRepo, models.AuditActionCreate, "career"), h.Careers.Create)
					manageCareers.PUT("/:career_id", middleware.Audit(h.UserRepo, models.AuditActionUpdate, "career"), h.Careers.Update)
					manageCareers.DELETE("/:career_id", middleware.Audit(h.UserRepo, models.AuditActionDelete, "career"), h.Careers.Delete)
				}
			}
		}

		courses := universities.Group("/:university_id/courses")
		{
			courses.GET("", h.Courses.List)
			courses.GET("/suggest-id", h.Courses.SuggestID)
			courses.GET("/check-id", h.Courses.CheckID)
			courses.GET("/:course_id", h.Courses.Get)

			manageCourses := courses.Group("")
			manageCourses.Use(middleware.RequireCapability(middleware.CapManageCourses))
			{
				manageCourses.POST("", middleware.Audit(h.UserRepo, models.AuditActionCreate, "course"), h.Courses.Create)
				manageCourses.PUT("/:course_id", middleware.Audit(h.UserRepo, models.AuditActionUpdate, "course"), h.Courses.Update)
				manageCourses.DELETE("/:course_id", middleware.Audit(h.UserRepo, models.AuditActionDelete, "course"), h.Courses.Delete)
			}

			commissions := courses.Group("/:course_id/commissions")
			{
				commissions.GET("", h.Commissions.List)
				commissions.GET("/check-id", h.Commissions.CheckID)
				commissions.GET("/:commission_id", h.Commissions.Get)

				manageCommissions := commissions.Group("")
				manageCommissions.Use(middleware.RequireCapability(middleware.CapManageCommissions))
				{
					manageCommissions.POST("", middleware.Audit(h.UserRepo, models.AuditActionCreate, "commission"), h.Commissions.Create)
					manageCommissions.PUT("/:commission_id", middleware.Audit(h.UserRepo, models.AuditActionUpdate, "commission"), h.Commissions.Update)
					manageCommissions.DELETE("/:commission_id", middleware.Audit(h.UserRepo, models.AuditActionDelete, "commission"), h.Commissions.Delete)
				}

				rubrics := commissions.Group("/:commission_id/rubrics")
				{
					rubrics.GET("", h.Rubrics.List)
					rubrics.GET("/suggest-id", h.Rubrics.SuggestID)
					rubrics.GET("/check-id", h.Rubrics.CheckID)
					rubrics.GET("/:rubric_id", h.Rubrics.Get)

					manageRubrics := rubrics.Group("")
					manageRubrics.Use(middleware.RequireCapability(middleware.CapManageRubrics))
					{
						manageRubrics.POST("", middleware.Audit(h.UserRepo, models.AuditActionCreate, "rubric"), h.Rubrics.Create)
						manageRubrics.PUT("/:rubric_id", middleware.Audit(h.UserRepo, models.AuditActionUpdate, "rubric"), h.Rubrics.Update)
						manageRubrics.DELETE("/:rubric_id", middleware.Audit(h.UserRepo, models.AuditActionDelete, "rubric"), h.Rubrics.Delete)
					}
				}
			}
		}
	}

	users := authed.Group("/users")
	users.Use(middleware.RequireCapability(middleware.CapManageUsers))
	{
		users.GET("", h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.POST("", h.Users.Create)
		users.PUT("/:id", h.Users.Update)
		users.DELETE("/:id", h.Users.Delete)
		users.POST("/:id/restore", h.Users.Restore)
	}

	submissions := authed.Group("/submissions")
	{
		submissions.GET("", h.Submissions.List)
		submissions.GET("/export", middleware.RequireCapability(middleware.CapReviewSubmissions), h.Submissions.ExportCSV)
		submissions.GET("/:id", h.Submissions.Get)
		submissions.POST("", middleware.RequireCapability(middleware.CapSubmitWork), h.Submissions.Upload)

		review := submissions.Group("")
		review.Use(middleware.RequireCapability(middleware.CapReviewSubmissions))
		{
			review.POST("/:id/queue", h.Submissions.QueueForCorrection)
			review.POST("/:id/correction", h.Submissions.RecordCorrection)
			review.POST("/:id/fail", h.Submissions.MarkFailed)
			review.POST("/:id/download-url", h.Submissions.SignDownload)
			review.DELETE("/:id", h.Submissions.Delete)
		}
	}

	consolidator := authed.Group("/consolidator")
	consolidator.Use(middleware.RequireCapability(middleware.CapReviewSubmissions))
	{
		consolidator.POST("/single", h.Consolidator.Single)
		consolidator.POST("/batch", h.Consolidator.Batch)
		consolidator.GET("/jobs", h.Consolidator.ListJobs)
		consolidator.GET("/jobs/:id", h.Consolidator.GetJob)
		consolidator.POST("/jobs/:id/download-url", h.Consolidator.SignOutput)
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	{
		admin.GET("/metrics", h.Metrics.Snapshot)
	}
}
