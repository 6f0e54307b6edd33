package handlers

import (
	"errors"
	"net/http"

	"github.com/campusworks/gradebook-service/internal/models"
	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/services"
	"github.com/campusworks/gradebook-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type DisputeHandler struct {
	BaseHandler
	disputeService   services.DisputeService
	gradebookService services.GradebookService
	validator        *utils.Validator
}

func NewDisputeHandler(
	disputeService services.DisputeService,
	gradebookService services.GradebookService,
	validator *utils.Validator,
	logger utils.Logger,
) *DisputeHandler {
	return &DisputeHandler{
		BaseHandler:      NewBaseHandler(logger),
		disputeService:   disputeService,
		gradebookService: gradebookService,
		validator:        validator,
	}
}

// CreateDispute opens a dispute on a gradebook entry
// @Summary Create grade dispute
// @Tags disputes
// @Accept json
// @Produce json
// @Param dispute body services.CreateDisputeRequest true "Dispute data"
// @Success 201 {object} models.GradeDispute
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /disputes [post]
func (h *DisputeHandler) CreateDispute(c *gin.Context) {
	h.LogRequest(c, "Creating grade dispute")

	var req services.CreateDisputeRequest
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

	dispute, err := h.disputeService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// GetDispute returns one dispute
// @Summary Get grade dispute
// @Tags disputes
// @Produce json
// @Param id path uint true "Dispute ID"
// @Success 200 {object} models.GradeDispute
// @Failure 404 {object} ErrorResponse
// @Router /disputes/{id} [get]
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	dispute, err := h.disputeService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// UpdateDispute advances a dispute through its workflow
// @Summary Update grade dispute
// @Tags disputes
// @Accept json
// @Produce json
// @Param id path uint true "Dispute ID"
// @Param dispute body services.UpdateDisputeRequest true "Dispute data"
// @Success 200 {object} models.GradeDispute
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /disputes/{id} [put]
func (h *DisputeHandler) UpdateDispute(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating grade dispute", "dispute_id", id)

	var req services.UpdateDisputeRequest
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
	if !h.requireReviewerRole(c) {
		return
	}

	dispute, err := h.disputeService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ApplyDisputeResolution writes an approved dispute's proposed score
// @Summary Apply dispute resolution
// @Description Applies the approved dispute's proposed score to the underlying entry through the normal grading path.
// @Tags disputes
// @Produce json
// @Param id path uint true "Dispute ID"
// @Success 200 {object} models.GradebookEntry
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /disputes/{id}/apply [post]
func (h *DisputeHandler) ApplyDisputeResolution(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Applying dispute resolution", "dispute_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	if !h.requireReviewerRole(c) {
		return
	}

	entry, err := h.gradebookService.ApplyDisputeResolution(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ListDisputes lists disputes with filters
// @Summary List grade disputes
// @Tags disputes
// @Produce json
// @Param status query string false "Dispute status"
// @Param student_id query uint false "Student ID"
// @Param entry_id query uint false "Gradebook entry ID"
// @Success 200 {object} services.DisputeListResponse
// @Router /disputes [get]
func (h *DisputeHandler) ListDisputes(c *gin.Context) {
	limit, offset := parsePagination(c)
	filters := repositories.DisputeFilters{
		StudentID: parseQueryUint(c, "student_id"),
		EntryID:   parseQueryUint(c, "entry_id"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.DisputeStatus(raw)
		filters.Status = &status
	}

	result, err := h.disputeService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDisputeStats returns dispute counts by status
// @Summary Get dispute statistics
// @Tags disputes
// @Produce json
// @Param course_id query uint false "Course ID"
// @Success 200 {object} repositories.DisputeStats
// @Router /disputes/stats [get]
func (h *DisputeHandler) GetDisputeStats(c *gin.Context) {
	stats, err := h.disputeService.GetStats(c.Request.Context(), parseQueryUint(c, "course_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *DisputeHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrDisputeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Grade dispute not found",
		})
	case errors.Is(err, services.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Gradebook entry not found",
		})
	case errors.Is(err, services.ErrDisputeNotOwnEntry):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Students may only dispute their own entries",
		})
	case errors.Is(err, services.ErrDisputeAlreadyActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "An active dispute already exists for this entry",
		})
	case errors.Is(err, services.ErrDisputeInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Invalid dispute status transition",
			Details: err.Error(),
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
