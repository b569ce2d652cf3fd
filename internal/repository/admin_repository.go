package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/table-order/internal/model"
)

// AdminRepo handles lookups and inserts on the admins and stores tables.
type AdminRepo struct{ db *sql.DB }

// NewAdminRepo creates a new AdminRepo.
func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

// GetByUsername returns the admin with the given login name.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	const q = `SELECT id, store_id, username, password_hash, created_at, updated_at FROM admins WHERE username = ?`
	var a model.Admin
	err := r.db.QueryRowContext(ctx, q, username).Scan(&a.ID, &a.StoreID, &a.Username, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new admin.  A taken username yields ErrConflict.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (store_id, username, password_hash) VALUES (?, ?, ?)`,
		a.StoreID, a.Username, a.PasswordHash)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetStore returns a store by id.
func (r *AdminRepo) GetStore(ctx context.Context, id uint64) (*model.Store, error) {
	var s model.Store
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at, updated_at FROM stores WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdatePassword replaces the password hash of an existing admin.
func (r *AdminRepo) UpdatePassword(ctx context.Context, username, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE admins SET password_hash = ? WHERE username = ?`, hash, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAdminNotFound
	}
	return nil
}
