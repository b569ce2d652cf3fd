package model

import "time"

// Table identifies a physical table in a store.  Customers open a
// session by scanning the table's QR code.  Only the label, capacity and
// active flag are editable after creation.
//
// Fields:
//  ID          – primary key identifier.
//  StoreID     – store owning the table.
//  TableNumber – human label printed on the table (e.g. "T3").
//  Capacity    – number of seats (defaults to 4).
//  QRCode      – unique scan code encoded in the printed QR.
//  IsActive    – inactive tables reject scan-ins.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Table struct {
	ID          uint64    `json:"id"`           // tables.id
	StoreID     uint64    `json:"store_id"`     // tables.store_id
	TableNumber string    `json:"table_number"` // tables.table_number
	Capacity    uint32    `json:"capacity"`     // tables.capacity
	QRCode      string    `json:"qr_code"`      // tables.qr_code
	IsActive    bool      `json:"is_active"`    // tables.is_active
	CreatedAt   time.Time `json:"created_at"`   // tables.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // tables.updated_at
}

// DefaultTableCapacity is used when a table is created without a capacity.
const DefaultTableCapacity = 4
