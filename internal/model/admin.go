package model

import "time"

// Store is the restaurant that owns tables, categories, menus and
// admins.  Every tenant-scoped row carries a store_id pointing here.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the restaurant.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Store struct {
	ID        uint64    `json:"id"`   // stores.id
	Name      string    `json:"name"` // stores.name
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Admin represents a staff account as stored in the `admins` table.
// Admins authenticate with username and password and receive a signed
// token scoped to their store.
//
// Fields:
//  ID           – primary key identifier of the admin.
//  StoreID      – store the admin manages.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Admin struct {
	ID           uint64    `json:"id"`       // admins.id
	StoreID      uint64    `json:"store_id"` // admins.store_id
	Username     string    `json:"username"` // admins.username
	PasswordHash string    `json:"-"`        // admins.password_hash
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
