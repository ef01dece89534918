package model

import "time"

// Well-known order statuses. Admins may set any status string; these are the
// values the storefront itself assigns or displays.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Order is an order aggregate root owned by the user that created it.
// UserID never changes after creation.
type Order struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	UserID    uint        `json:"userId" gorm:"index;not null"`
	Status    string      `json:"status" gorm:"type:varchar(50);not null;default:'PENDING'"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Items     []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem is a single line of an order. One row is written per requested
// item; duplicate product ids are not merged.
type OrderItem struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	OrderID   uint     `json:"orderId" gorm:"index;not null"`
	ProductID uint     `json:"productId" gorm:"index;not null"`
	Quantity  int      `json:"quantity" gorm:"not null"`
	Product   *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
