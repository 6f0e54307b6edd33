package handlers

import (
	"errors"
	"net/http"

	"github.com/campusworks/gradebook-service/internal/services"
	"github.com/campusworks/gradebook-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type CurveHandler struct {
	BaseHandler
	curveService services.CurveService
	validator    *utils.Validator
}

func NewCurveHandler(
	curveService services.CurveService,
	validator *utils.Validator,
	logger utils.Logger,
) *CurveHandler {
	return &CurveHandler{
		BaseHandler:  NewBaseHandler(logger),
		curveService: curveService,
		validator:    validator,
	}
}

// CreateCurve creates a grade curve
// @Summary Create grade curve
// @Tags curves
// @Accept json
// @Produce json
// @Param curve body services.CreateCurveRequest true "Curve data"
// @Success 201 {object} models.GradeCurve
// @Failure 400 {object} ErrorResponse
// @Router /curves [post]
func (h *CurveHandler) CreateCurve(c *gin.Context) {
	h.LogRequest(c, "Creating grade curve")

	var req services.CreateCurveRequest
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

	curve, err := h.curveService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, curve)
}

// GetCurve returns one curve by id
// @Summary Get grade curve
// @Tags curves
// @Produce json
// @Param id path uint true "Curve ID"
// @Success 200 {object} models.GradeCurve
// @Failure 404 {object} ErrorResponse
// @Router /curves/{id} [get]
func (h *CurveHandler) GetCurve(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	curve, err := h.curveService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, curve)
}

// UpdateCurve updates a curve's parameters
// @Summary Update grade curve
// @Tags curves
// @Accept json
// @Produce json
// @Param id path uint true "Curve ID"
// @Param curve body services.UpdateCurveRequest true "Curve data"
// @Success 200 {object} models.GradeCurve
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /curves/{id} [put]
func (h *CurveHandler) UpdateCurve(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating grade curve", "curve_id", id)

	var req services.UpdateCurveRequest
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

	curve, err := h.curveService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, curve)
}

// DeactivateCurve soft-disables a curve
// @Summary Deactivate grade curve
// @Tags curves
// @Produce json
// @Param id path uint true "Curve ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /curves/{id} [delete]
func (h *CurveHandler) DeactivateCurve(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deactivating grade curve", "curve_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.curveService.Deactivate(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Curve deactivated"})
}

// ListCurves lists curves
// @Summary List grade curves
// @Tags curves
// @Produce json
// @Param active_only query bool false "Only active curves"
// @Param assessment_id query uint false "Assessment ID"
// @Success 200 {array} models.GradeCurve
// @Router /curves [get]
func (h *CurveHandler) ListCurves(c *gin.Context) {
	if assessmentID := parseQueryUint(c, "assessment_id"); assessmentID != nil {
		curves, err := h.curveService.GetByAssessment(c.Request.Context(), *assessmentID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, curves)
		return
	}

	activeOnly := false
	if v := parseQueryBool(c, "active_only"); v != nil {
		activeOnly = *v
	}

	curves, err := h.curveService.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, curves)
}

func (h *CurveHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrCurveNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Grade curve not found",
		})
	case errors.Is(err, services.ErrCurveInvalidParameters):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid curve parameters",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrCurveInactive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Grade curve is not active",
		})
	case errors.Is(err, services.ErrValidationFailed), errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
