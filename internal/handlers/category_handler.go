package handlers

import (
	"errors"
	"net/http"

	"github.com/campusworks/gradebook-service/internal/services"
	"github.com/campusworks/gradebook-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// UpdateDisplayOrderRequest carries a category's new sibling position.
type UpdateDisplayOrderRequest struct {
	DisplayOrder int `json:"display_order"`
}

type CategoryHandler struct {
	BaseHandler
	categoryService services.CategoryService
	validator       *utils.Validator
}

func NewCategoryHandler(
	categoryService services.CategoryService,
	validator *utils.Validator,
	logger utils.Logger,
) *CategoryHandler {
	return &CategoryHandler{
		BaseHandler:     NewBaseHandler(logger),
		categoryService: categoryService,
		validator:       validator,
	}
}

// CreateCategory creates a grade category
// @Summary Create grade category
// @Tags categories
// @Accept json
// @Produce json
// @Param category body services.CreateCategoryRequest true "Category data"
// @Success 201 {object} models.GradeCategory
// @Failure 400 {object} ErrorResponse
// @Router /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	h.LogRequest(c, "Creating grade category")

	var req services.CreateCategoryRequest
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

	category, err := h.categoryService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

// GetCategory returns one category by id
// @Summary Get grade category
// @Tags categories
// @Produce json
// @Param id path uint true "Category ID"
// @Success 200 {object} models.GradeCategory
// @Failure 404 {object} ErrorResponse
// @Router /categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	category, err := h.categoryService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// UpdateCategory updates a category
// @Summary Update grade category
// @Tags categories
// @Accept json
// @Produce json
// @Param id path uint true "Category ID"
// @Param category body services.UpdateCategoryRequest true "Category data"
// @Success 200 {object} models.GradeCategory
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating grade category", "category_id", id)

	var req services.UpdateCategoryRequest
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

	category, err := h.categoryService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// UpdateCategoryDisplayOrder moves a category within its siblings
// @Summary Update category display order
// @Tags categories
// @Accept json
// @Produce json
// @Param id path uint true "Category ID"
// @Param order body UpdateDisplayOrderRequest true "Display order"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /categories/{id}/display-order [put]
func (h *CategoryHandler) UpdateCategoryDisplayOrder(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req UpdateDisplayOrderRequest
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

	if err := h.categoryService.UpdateDisplayOrder(c.Request.Context(), id, req.DisplayOrder, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Display order updated"})
}

// DeactivateCategory soft-disables a category
// @Summary Deactivate grade category
// @Tags categories
// @Produce json
// @Param id path uint true "Category ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /categories/{id} [delete]
func (h *CategoryHandler) DeactivateCategory(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deactivating grade category", "category_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.categoryService.Deactivate(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Category deactivated"})
}

// GetCategoryTree returns a course's category tree
// @Summary Get course category tree
// @Tags categories
// @Produce json
// @Param course_id path uint true "Course ID"
// @Param active_only query bool false "Only active categories"
// @Success 200 {array} models.GradeCategory
// @Router /courses/{course_id}/categories [get]
func (h *CategoryHandler) GetCategoryTree(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	activeOnly := true
	if v := parseQueryBool(c, "active_only"); v != nil {
		activeOnly = *v
	}

	tree, err := h.categoryService.GetTree(c.Request.Context(), courseID, activeOnly)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tree)
}

// ValidateCategoryWeights runs the advisory weight-sum check
// @Summary Validate category weights
// @Tags categories
// @Produce json
// @Param course_id path uint true "Course ID"
// @Param parent_id query uint false "Parent category ID (omit for root level)"
// @Success 200 {object} services.WeightValidationResult
// @Router /courses/{course_id}/categories/validate-weights [get]
func (h *CategoryHandler) ValidateCategoryWeights(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	parentID := parseQueryUint(c, "parent_id")

	result, err := h.categoryService.ValidateWeights(c.Request.Context(), courseID, parentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CategoryHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Grade category not found",
		})
	case errors.Is(err, services.ErrCategoryHasEntries):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Grade category has gradebook entries",
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
