package model

import "time"

// Category groups products on the menu. Deleting a category removes its
// products first, so no dangling category references survive.
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null;unique"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product represents a menu item belonging to a category
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Price       float64   `json:"price" gorm:"not null"`
	CategoryID  uint      `json:"categoryId" gorm:"index;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Image       string    `json:"image" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
