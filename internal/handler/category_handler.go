package handler

import (
	"net/http"
	"strconv"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/pkg/database"
	"coffeeshop-service/pkg/logger"
	"coffeeshop-service/pkg/validate"
	"coffeeshop-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// parseID parses a numeric path parameter
func parseID(c echo.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ListCategories retrieves all product categories
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)

	var categories []model.Category
	result := database.GetDB().Find(&categories)
	if result.Error != nil {
		log.Error("Failed to retrieve categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve categories",
		})
	}

	log.Info("Categories retrieved successfully", zap.Int("count", len(categories)))
	return c.JSON(http.StatusOK, categories)
}

// GetCategory retrieves a specific category by ID
func GetCategory(c echo.Context) error {
	log := logger.FromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		log.Warn("Invalid category ID", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid category ID"})
	}

	var category model.Category
	result := database.GetDB().First(&category, id)
	if result.Error != nil {
		log.Warn("Category not found", zap.Uint("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Category not found"})
	}

	return c.JSON(http.StatusOK, category)
}

// CreateCategory adds a new product category
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCatalogOperation("category", "create")

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if err := validate.Struct(&req); err != nil {
		log.Warn("Category validation failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// Check if category with same name exists
	var count int64
	database.GetDB().Model(&model.Category{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		log.Warn("Category with this name already exists", zap.String("name", req.Name))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Category with this name already exists",
		})
	}

	category := model.Category{Name: req.Name}
	result := database.GetDB().Create(&category)
	if result.Error != nil {
		log.Error("Failed to create category",
			zap.String("name", req.Name),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create category",
		})
	}

	log.Info("Category created successfully",
		zap.Uint("category_id", category.ID),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates an existing product category
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCatalogOperation("category", "update")

	id, ok := parseID(c, "id")
	if !ok {
		log.Warn("Invalid category ID", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid category ID"})
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if err := validate.Struct(&req); err != nil {
		log.Warn("Category validation failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var category model.Category
	result := database.GetDB().First(&category, id)
	if result.Error != nil {
		log.Warn("Category not found", zap.Uint("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Category not found"})
	}

	// Check if name is changed and if new name already exists
	if req.Name != category.Name {
		var count int64
		database.GetDB().Model(&model.Category{}).
			Where("name = ? AND id != ?", req.Name, id).
			Count(&count)
		if count > 0 {
			log.Warn("Category with this name already exists", zap.String("name", req.Name))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Category with this name already exists",
			})
		}
	}

	category.Name = req.Name
	result = database.GetDB().Save(&category)
	if result.Error != nil {
		log.Error("Failed to update category",
			zap.Uint("category_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update category",
		})
	}

	log.Info("Category updated successfully",
		zap.Uint("category_id", id),
		zap.String("name", category.Name))
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory deletes a category together with its products. The cascade
// is an explicit two-step delete inside one transaction.
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCatalogOperation("category", "delete")

	id, ok := parseID(c, "id")
	if !ok {
		log.Warn("Invalid category ID", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid category ID"})
	}

	var category model.Category
	result := database.GetDB().First(&category, id)
	if result.Error != nil {
		log.Warn("Category not found", zap.Uint("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Category not found"})
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&model.Product{}).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		log.Error("Failed to delete category",
			zap.Uint("category_id", id),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete category",
		})
	}

	log.Info("Category deleted successfully",
		zap.Uint("category_id", id),
		zap.String("name", category.Name))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Category deleted successfully",
	})
}
