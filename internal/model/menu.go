package model

import "time"

// Category groups menus on the customer menu board.  Categories are
// ordered by DisplayOrder.
type Category struct {
	ID           uint64    `json:"id"`            // categories.id
	StoreID      uint64    `json:"store_id"`      // categories.store_id
	Name         string    `json:"name"`          // categories.name
	DisplayOrder int       `json:"display_order"` // categories.display_order
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Menu is an orderable item.  Price is an integer amount in the store's
// currency unit.  Orders copy Name and Price at creation time so later
// edits never change historical orders.
//
// Fields:
//  ID          – primary key identifier.
//  CategoryID  – owning category.
//  Name        – item name shown to customers.
//  Description – optional description.
//  Price       – unit price.
//  ImageURL    – optional image location.
//  Allergens   – optional comma separated allergen list.
//  IsAvailable – unavailable items cannot be ordered.
type Menu struct {
	ID          uint64    `json:"id"`                    // menus.id
	CategoryID  uint64    `json:"category_id"`           // menus.category_id
	Name        string    `json:"name"`                  // menus.name
	Description *string   `json:"description,omitempty"` // menus.description (nullable)
	Price       int64     `json:"price"`                 // menus.price
	ImageURL    *string   `json:"image_url,omitempty"`   // menus.image_url (nullable)
	Allergens   *string   `json:"allergens,omitempty"`   // menus.allergens (nullable)
	IsAvailable bool      `json:"is_available"`          // menus.is_available
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
