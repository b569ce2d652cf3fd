package model

import "time"

// Session records one continuous occupancy of a table by a party.  A
// session with EndedAt == nil is the table's active session; there is
// at most one of those per table.  Only the SHA-256 hash of the bearer
// token is persisted, the raw Token is populated once when the session
// is created.
//
// Fields:
//  ID        – primary key identifier.
//  TableID   – table being occupied.
//  StoreID   – store of the table (joined, not stored on the row).
//  Token     – raw bearer token, only set on creation.
//  TokenHash – SHA-256 hex digest of the token.
//  StartedAt – scan-in timestamp.
//  EndedAt   – scan-out timestamp (nil while active).
type Session struct {
	ID        uint64     `json:"id"`                 // table_sessions.id
	TableID   uint64     `json:"table_id"`           // table_sessions.table_id
	StoreID   uint64     `json:"store_id"`           // tables.store_id
	Token     string     `json:"-"`                  // never persisted
	TokenHash string     `json:"-"`                  // table_sessions.token_hash
	StartedAt time.Time  `json:"started_at"`         // table_sessions.started_at
	EndedAt   *time.Time `json:"ended_at,omitempty"` // table_sessions.ended_at (nullable)
}

// Active reports whether the session has not been ended.
func (s Session) Active() bool { return s.EndedAt == nil }
