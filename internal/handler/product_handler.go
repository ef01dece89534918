package handler

import (
	"net/http"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/pkg/database"
	"coffeeshop-service/pkg/logger"
	"coffeeshop-service/pkg/validate"
	"coffeeshop-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	CategoryID  uint    `json:"categoryId" validate:"required"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

// categoryExists reports whether the referenced category row is present
func categoryExists(id uint) bool {
	var count int64
	database.GetDB().Model(&model.Category{}).Where("id = ?", id).Count(&count)
	return count > 0
}

// ListProducts handles retrieving all products
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	var products []model.Product
	result := database.GetDB().Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve products",
		})
	}

	log.Info("Products retrieved successfully", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// GetProduct handles retrieving a single product by ID
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		log.Warn("Invalid product ID", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid product ID"})
	}

	var product model.Product
	result := database.GetDB().First(&product, id)
	if result.Error != nil {
		log.Warn("Product not found", zap.Uint("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles creating a new product
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCatalogOperation("product", "create")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if err := validate.Struct(&req); err != nil {
		log.Warn("Product validation failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// The category reference must resolve before anything is written
	if !categoryExists(req.CategoryID) {
		log.Warn("Referenced category does not exist", zap.Uint("category_id", req.CategoryID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Category does not exist"})
	}

	product := model.Product{
		Name:        req.Name,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Image:       req.Image,
	}

	result := database.GetDB().Create(&product)
	if result.Error != nil {
		log.Error("Failed to create product",
			zap.String("name", req.Name),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create product",
		})
	}

	log.Info("Product created successfully",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Float64("price", product.Price))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles updating an existing product
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCatalogOperation("product", "update")

	id, ok := parseID(c, "id")
	if !ok {
		log.Warn("Invalid product ID", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid product ID"})
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if err := validate.Struct(&req); err != nil {
		log.Warn("Product validation failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var product model.Product
	result := database.GetDB().First(&product, id)
	if result.Error != nil {
		log.Warn("Product not found for update", zap.Uint("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	if !categoryExists(req.CategoryID) {
		log.Warn("Referenced category does not exist", zap.Uint("category_id", req.CategoryID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Category does not exist"})
	}

	oldPrice := product.Price

	product.Name = req.Name
	product.Price = req.Price
	product.CategoryID = req.CategoryID
	product.Description = req.Description
	product.Image = req.Image

	result = database.GetDB().Save(&product)
	if result.Error != nil {
		log.Error("Failed to update product",
			zap.Uint("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update product",
		})
	}

	log.Info("Product updated successfully",
		zap.Uint("product_id", id),
		zap.String("name", product.Name),
		zap.Float64("old_price", oldPrice),
		zap.Float64("new_price", product.Price))
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles deleting a product
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCatalogOperation("product", "delete")

	id, ok := parseID(c, "id")
	if !ok {
		log.Warn("Invalid product ID", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid product ID"})
	}

	result := database.GetDB().Delete(&model.Product{}, id)
	if result.Error != nil {
		log.Error("Failed to delete product",
			zap.Uint("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete product",
		})
	}

	if result.RowsAffected == 0 {
		log.Warn("Product not found for deletion", zap.Uint("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	log.Info("Product deleted successfully", zap.Uint("product_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Product deleted successfully",
	})
}
