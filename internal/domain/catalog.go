package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item.
type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Category groups products.
type Category struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       *string   `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductCategory links one product to one category. A pair is unique.
type ProductCategory struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	CategoryID string    `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}
