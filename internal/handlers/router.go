package handlers

import (
	"strconv"

	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/services"
	"github.com/campusworks/gradebook-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	categoryHandler  *CategoryHandler
	scaleHandler     *ScaleHandler
	curveHandler     *CurveHandler
	gradebookHandler *GradebookHandler
	disputeHandler   *DisputeHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		categoryHandler:  NewCategoryHandler(serviceManager.Category(), validator, logger),
		scaleHandler:     NewScaleHandler(serviceManager.Scale(), validator, logger),
		curveHandler:     NewCurveHandler(serviceManager.Curve(), validator, logger),
		gradebookHandler: NewGradebookHandler(serviceManager.Gradebook(), serviceManager.Aggregation(), validator, logger),
		disputeHandler:   NewDisputeHandler(serviceManager.Dispute(), serviceManager.Gradebook(), validator, logger),
	}
}

// IdentityMiddleware trusts the user id and role asserted by the
// upstream gateway. Authentication itself happens before requests
// reach this service.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader("X-User-ID"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil && id > 0 {
				c.Set("user_id", uint(id))
			}
		}
		if raw := c.GetHeader("X-User-Role"); raw != "" {
			if role, ok := models.ParseUserRole(raw); ok {
				c.Set("user_role", role)
			}
		}
		c.Next()
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		// Category routes
		categories := v1.Group("/categories")
		{
			categories.POST("", hm.categoryHandler.CreateCategory)
			categories.GET("/:id", hm.categoryHandler.GetCategory)
			categories.PUT("/:id", hm.categoryHandler.UpdateCategory)
			categories.PUT("/:id/display-order", hm.categoryHandler.UpdateCategoryDisplayOrder)
			categories.DELETE("/:id", hm.categoryHandler.DeactivateCategory)
		}

		// Course-scoped routes
		courses := v1.Group("/courses")
		{
			courses.GET("/:course_id/categories", hm.categoryHandler.GetCategoryTree)
			courses.GET("/:course_id/categories/validate-weights", hm.categoryHandler.ValidateCategoryWeights)
			courses.GET("/:course_id/gradebook/stats", hm.gradebookHandler.GetGradebookStats)
			courses.GET("/:course_id/students/:student_id/grade", hm.gradebookHandler.GetOverallGrade)
		}

		// Scale routes
		scales := v1.Group("/scales")
		{
			scales.POST("", hm.scaleHandler.CreateScale)
			scales.GET("", hm.scaleHandler.ListScales)
			scales.GET("/:id", hm.scaleHandler.GetScale)
			scales.PUT("/:id", hm.scaleHandler.UpdateScale)
			scales.DELETE("/:id", hm.scaleHandler.DeactivateScale)
			scales.POST("/:id/default", hm.scaleHandler.SetDefaultScale)
		}

		// Curve routes
		curves := v1.Group("/curves")
		{
			curves.POST("", hm.curveHandler.CreateCurve)
			curves.GET("", hm.curveHandler.ListCurves)
			curves.GET("/:id", hm.curveHandler.GetCurve)
			curves.PUT("/:id", hm.curveHandler.UpdateCurve)
			curves.DELETE("/:id", hm.curveHandler.DeactivateCurve)
		}

		// Gradebook routes
		gradebook := v1.Group("/gradebook")
		{
			gradebook.POST("/entries", hm.gradebookHandler.UpsertEntry)
			gradebook.GET("/entries", hm.gradebookHandler.ListEntries)
			gradebook.GET("/entries/:id", hm.gradebookHandler.GetEntry)
			gradebook.DELETE("/entries/:id", hm.gradebookHandler.DeleteEntry)
			gradebook.GET("/entries/:id/history", hm.gradebookHandler.GetEntryHistory)
		}

		// Dispute routes
		disputes := v1.Group("/disputes")
		{
			disputes.POST("", hm.disputeHandler.CreateDispute)
			disputes.GET("", hm.disputeHandler.ListDisputes)
			disputes.GET("/stats", hm.disputeHandler.GetDisputeStats)
			disputes.GET("/:id", hm.disputeHandler.GetDispute)
			disputes.PUT("/:id", hm.disputeHandler.UpdateDispute)
			disputes.POST("/:id/apply", hm.disputeHandler.ApplyDisputeResolution)
		}
	}
}
