package handlers

import (
	"errors"
	"net/http"

	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/services"
	"github.com/campusworks/gradebook-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type GradebookHandler struct {
	BaseHandler
	gradebookService   services.GradebookService
	aggregationService services.AggregationService
	validator          *utils.Validator
}

func NewGradebookHandler(
	gradebookService services.GradebookService,
	aggregationService services.AggregationService,
	validator *utils.Validator,
	logger utils.Logger,
) *GradebookHandler {
	return &GradebookHandler{
		BaseHandler:        NewBaseHandler(logger),
		gradebookService:   gradebookService,
		aggregationService: aggregationService,
		validator:          validator,
	}
}

// UpsertEntry creates or updates a gradebook entry
// @Summary Upsert gradebook entry
// @Description Creates an entry when entry_id is absent, otherwise mutates the existing one. Every write appends a history record.
// @Tags gradebook
// @Accept json
// @Produce json
// @Param entry body services.UpsertEntryRequest true "Entry data"
// @Success 200 {object} models.GradebookEntry
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /gradebook/entries [post]
func (h *GradebookHandler) UpsertEntry(c *gin.Context) {
	h.LogRequest(c, "Upserting gradebook entry")

	var req services.UpsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	entry, err := h.gradebookService.UpsertEntry(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if req.EntryID == nil {
		status = http.StatusCreated
	}
	c.JSON(status, entry)
}

// GetEntry returns one entry
// @Summary Get gradebook entry
// @Tags gradebook
// @Produce json
// @Param id path uint true "Entry ID"
// @Success 200 {object} models.GradebookEntry
// @Failure 404 {object} ErrorResponse
// @Router /gradebook/entries/{id} [get]
func (h *GradebookHandler) GetEntry(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	entry, err := h.gradebookService.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ListEntries lists entries with filters
// @Summary List gradebook entries
// @Tags gradebook
// @Produce json
// @Param student_id query uint false "Student ID"
// @Param course_id query uint false "Course ID"
// @Param category_id query uint false "Category ID"
// @Param is_published query bool false "Published filter"
// @Success 200 {object} services.EntryListResponse
// @Router /gradebook/entries [get]
func (h *GradebookHandler) ListEntries(c *gin.Context) {
	limit, offset := parsePagination(c)
	filters := repositories.EntryFilters{
		StudentID:   parseQueryUint(c, "student_id"),
		CourseID:    parseQueryUint(c, "course_id"),
		CategoryID:  parseQueryUint(c, "category_id"),
		IsPublished: parseQueryBool(c, "is_published"),
		IsExcused:   parseQueryBool(c, "is_excused"),
		Limit:       limit,
		Offset:      offset,
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
	}

	result, err := h.gradebookService.ListEntries(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteEntry soft-deletes an entry
// @Summary Delete gradebook entry
// @Tags gradebook
// @Produce json
// @Param id path uint true "Entry ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /gradebook/entries/{id} [delete]
func (h *GradebookHandler) DeleteEntry(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting gradebook entry", "entry_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.gradebookService.DeleteEntry(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Entry deleted"})
}

// GetEntryHistory returns the audit trail of an entry
// @Summary Get entry history
// @Tags gradebook
// @Produce json
// @Param id path uint true "Entry ID"
// @Success 200 {array} models.GradeHistory
// @Failure 404 {object} ErrorResponse
// @Router /gradebook/entries/{id}/history [get]
func (h *GradebookHandler) GetEntryHistory(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	history, err := h.gradebookService.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetOverallGrade computes a student's course grade
// @Summary Compute overall course grade
// @Tags gradebook
// @Produce json
// @Param course_id path uint true "Course ID"
// @Param student_id path uint true "Student ID"
// @Success 200 {object} services.GradeReport
// @Failure 404 {object} ErrorResponse
// @Router /courses/{course_id}/students/{student_id}/grade [get]
func (h *GradebookHandler) GetOverallGrade(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}
	studentID := h.parseIDParam(c, "student_id")
	if studentID == 0 {
		return
	}

	report, err := h.aggregationService.ComputeOverallGrade(c.Request.Context(), studentID, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetGradebookStats summarizes a course's entries
// @Summary Get gradebook statistics
// @Tags gradebook
// @Produce json
// @Param course_id path uint true "Course ID"
// @Param category_id query uint false "Category ID"
// @Success 200 {object} repositories.GradebookStats
// @Router /courses/{course_id}/gradebook/stats [get]
func (h *GradebookHandler) GetGradebookStats(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	stats, err := h.gradebookService.GetStats(c.Request.Context(), courseID, parseQueryUint(c, "category_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *GradebookHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Gradebook entry not found",
		})
	case errors.Is(err, services.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Grade category not found",
		})
	case errors.Is(err, services.ErrCurveNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Grade curve not found",
		})
	case errors.Is(err, services.ErrDisputeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Grade dispute not found",
		})
	case errors.Is(err, services.ErrNoActiveScale):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No active grade scale configured",
		})
	case errors.Is(err, services.ErrEntryInvalidPoints):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Possible points must be greater than 0",
		})
	case errors.Is(err, services.ErrCurveInactive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Grade curve is not active",
		})
	case errors.Is(err, services.ErrDisputeNotApproved):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Dispute is not approved",
		})
	case errors.Is(err, services.ErrDisputeNoProposedScore):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Dispute has no proposed score to apply",
		})
	case errors.Is(err, services.ErrValidationFailed), errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Forbidden - insufficient permissions",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
