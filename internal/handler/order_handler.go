package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/pkg/database"
	"coffeeshop-service/pkg/logger"
	"coffeeshop-service/pkg/validate"
	"coffeeshop-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderItemRequest is a single requested line of a new order
type OrderItemRequest struct {
	ProductID uint `json:"productId" validate:"required,gt=0"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest defines the payload for order creation
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderStatusRequest defines the payload for a status transition
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// productNotFoundError aborts the order transaction when a referenced
// product does not exist.
type productNotFoundError struct {
	ProductID uint
}

func (e *productNotFoundError) Error() string {
	return fmt.Sprintf("Product with id %d not found", e.ProductID)
}

// identity pulls the authenticated user id and role out of the request
// context. Both are set by the Authenticate middleware.
func identity(c echo.Context) (uint, string, bool) {
	userID, okID := c.Get("user_id").(uint)
	role, okRole := c.Get("role").(string)
	return userID, role, okID && okRole
}

// CreateOrder creates an order together with its items in one transaction.
// Only non-admin users may order; the whole aggregate is rolled back when
// any referenced product is missing, so no partial order is ever visible.
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("create")

	userID, role, ok := identity(c)
	if !ok {
		log.Warn("Missing identity in context")
		prometheus.RecordOrderError("unauthenticated")
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No access"})
	}

	if role == model.RoleAdmin {
		log.Warn("Admin attempted to create an order", zap.Uint("user_id", userID))
		prometheus.RecordOrderError("admin_create_forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Administrators cannot create orders"})
	}

	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse order request", zap.Error(err))
		prometheus.RecordOrderError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}

	if err := validate.Struct(&req); err != nil {
		log.Warn("Order validation failed", zap.Error(err))
		prometheus.RecordOrderError("invalid_payload")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}

	order := model.Order{
		UserID: userID,
		Status: model.OrderStatusPending,
	}
	items := make([]model.OrderItem, 0, len(req.Items))

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// One row per requested item, duplicates included. Each product
		// reference must resolve or the whole transaction rolls back.
		for _, item := range req.Items {
			var product model.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &productNotFoundError{ProductID: item.ProductID}
				}
				return err
			}

			orderItem := model.OrderItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
			items = append(items, orderItem)
		}

		return nil
	})
	if err != nil {
		var notFound *productNotFoundError
		if errors.As(err, &notFound) {
			log.Warn("Order referenced a missing product",
				zap.Uint("user_id", userID),
				zap.Uint("product_id", notFound.ProductID))
			prometheus.RecordOrderError("product_not_found")
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": notFound.Error()})
		}

		log.Error("Failed to create order", zap.Uint("user_id", userID), zap.Error(err))
		prometheus.RecordOrderError("creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to create order"})
	}

	log.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", userID),
		zap.Int("item_count", len(items)))
	return c.JSON(http.StatusCreated, echo.Map{
		"order": order,
		"items": items,
	})
}

// ListOrders returns the caller's orders, or every order when the caller is
// an admin.
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("list")

	userID, role, ok := identity(c)
	if !ok {
		log.Warn("Missing identity in context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No access"})
	}

	query := database.GetDB().Preload("Items.Product")
	if role != model.RoleAdmin {
		query = query.Where("user_id = ?", userID)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var orders []model.Order
	if result := query.Find(&orders); result.Error != nil {
		log.Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to retrieve orders"})
	}

	log.Info("Orders retrieved",
		zap.Uint("user_id", userID),
		zap.String("role", role),
		zap.Int("count", len(orders)))
	return c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus sets the status of an order. Admin only; the status
// value is persisted as sent, there is no transition table.
func UpdateOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("status_update")

	_, role, ok := identity(c)
	if !ok {
		log.Warn("Missing identity in context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No access"})
	}

	orderID, okID := parseID(c, "orderId")
	if !okID {
		log.Warn("Invalid order ID", zap.String("id", c.Param("orderId")))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid order ID"})
	}

	var order model.Order
	if result := database.GetDB().First(&order, orderID); result.Error != nil {
		log.Warn("Order not found", zap.Uint("order_id", orderID))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
	}

	if role != model.RoleAdmin {
		log.Warn("Non-admin attempted status update",
			zap.Uint("order_id", orderID),
			zap.String("role", role))
		prometheus.RecordOrderError("edit_forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"message": "No permission to edit"})
	}

	var req UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse status update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}
	if err := validate.Struct(&req); err != nil {
		log.Warn("Status validation failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}

	order.Status = req.Status
	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&order); result.Error != nil {
		log.Error("Failed to update order status",
			zap.Uint("order_id", orderID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to update order"})
	}

	log.Info("Order status updated",
		zap.Uint("order_id", orderID),
		zap.String("status", order.Status))
	return c.JSON(http.StatusOK, order)
}

// DeleteOrder removes an order and its items. Admin only.
func DeleteOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("delete")

	_, role, ok := identity(c)
	if !ok {
		log.Warn("Missing identity in context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No access"})
	}

	orderID, okID := parseID(c, "orderId")
	if !okID {
		log.Warn("Invalid order ID", zap.String("id", c.Param("orderId")))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid order ID"})
	}

	var order model.Order
	if result := database.GetDB().First(&order, orderID); result.Error != nil {
		log.Warn("Order not found", zap.Uint("order_id", orderID))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
	}

	if role != model.RoleAdmin {
		log.Warn("Non-admin attempted order delete",
			zap.Uint("order_id", orderID),
			zap.String("role", role))
		prometheus.RecordOrderError("delete_forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"message": "No permission to delete"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		log.Error("Failed to delete order",
			zap.Uint("order_id", orderID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to delete order"})
	}

	log.Info("Order deleted", zap.Uint("order_id", orderID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Order deleted successfully"})
}
