package handlers

import (
	"errors"
	"net/http"

	"github.com/campusworks/gradebook-service/internal/repositories"
	"github.com/campusworks/gradebook-service/internal/services"
	"github.com/campusworks/gradebook-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type ScaleHandler struct {
	BaseHandler
	scaleService services.ScaleService
	validator    *utils.Validator
}

func NewScaleHandler(
	scaleService services.ScaleService,
	validator *utils.Validator,
	logger utils.Logger,
) *ScaleHandler {
	return &ScaleHandler{
		BaseHandler:  NewBaseHandler(logger),
		scaleService: scaleService,
		validator:    validator,
	}
}

// CreateScale creates a grade scale
// @Summary Create grade scale
// @Tags scales
// @Accept json
// @Produce json
// @Param scale body services.CreateScaleRequest true "Scale data"
// @Success 201 {object} models.GradeScale
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /scales [post]
func (h *ScaleHandler) CreateScale(c *gin.Context) {
	h.LogRequest(c, "Creating grade scale")

	var req services.CreateScaleRequest
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

	scale, err := h.scaleService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, scale)
}

// GetScale returns one scale by id
// @Summary Get grade scale
// @Tags scales
// @Produce json
// @Param id path uint true "Scale ID"
// @Success 200 {object} models.GradeScale
// @Failure 404 {object} ErrorResponse
// @Router /scales/{id} [get]
func (h *ScaleHandler) GetScale(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	scale, err := h.scaleService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scale)
}

// UpdateScale updates a scale's name or entries
// @Summary Update grade scale
// @Tags scales
// @Accept json
// @Produce json
// @Param id path uint true "Scale ID"
// @Param scale body services.UpdateScaleRequest true "Scale data"
// @Success 200 {object} models.GradeScale
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /scales/{id} [put]
func (h *ScaleHandler) UpdateScale(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating grade scale", "scale_id", id)

	var req services.UpdateScaleRequest
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

	scale, err := h.scaleService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scale)
}

// SetDefaultScale flags a scale as the system default
// @Summary Set default grade scale
// @Tags scales
// @Produce json
// @Param id path uint true "Scale ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /scales/{id}/default [post]
func (h *ScaleHandler) SetDefaultScale(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Setting default grade scale", "scale_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.scaleService.SetDefault(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Default scale updated"})
}

// DeactivateScale soft-disables a scale
// @Summary Deactivate grade scale
// @Tags scales
// @Produce json
// @Param id path uint true "Scale ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /scales/{id} [delete]
func (h *ScaleHandler) DeactivateScale(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deactivating grade scale", "scale_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.scaleService.Deactivate(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Scale deactivated"})
}

// ListScales lists scales with filters
// @Summary List grade scales
// @Tags scales
// @Produce json
// @Param course_id query uint false "Course ID"
// @Param active_only query bool false "Only active scales"
// @Success 200 {array} models.GradeScale
// @Router /scales [get]
func (h *ScaleHandler) ListScales(c *gin.Context) {
	limit, offset := parsePagination(c)
	filters := repositories.ScaleFilters{
		CourseID: parseQueryUint(c, "course_id"),
		Limit:    limit,
		Offset:   offset,
	}
	if v := parseQueryBool(c, "active_only"); v != nil {
		filters.ActiveOnly = *v
	}

	scales, total, err := h.scaleService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scales": scales,
		"total":  total,
	})
}

func (h *ScaleHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var overlap *services.OverlappingRangeError
	if errors.As(err, &overlap) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Scale entries overlap",
			Details: overlap,
		})
		return
	}

	var invalidRange *services.InvalidRangeError
	if errors.As(err, &invalidRange) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Scale entry has an invalid range",
			Details: invalidRange,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrScaleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Grade scale not found",
		})
	case errors.Is(err, services.ErrNoActiveScale):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No active grade scale configured",
		})
	case errors.Is(err, services.ErrValidationFailed), errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Resource conflict",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
