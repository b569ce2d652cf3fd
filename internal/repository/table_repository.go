package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"

	"github.com/iliyamo/table-order/internal/model"
)

// TableRepo encapsulates all database queries related to dining tables.
// Every lookup except GetActiveByQRCode is scoped to a store so that an
// admin can never address another store's tables.
type TableRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewTableRepo constructs a TableRepo with the provided DB handle.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = "id, store_id, table_number, capacity, qr_code, is_active, created_at, updated_at"

func scanTable(s rowScanner) (*model.Table, error) {
	var t model.Table
	if err := s.Scan(&t.ID, &t.StoreID, &t.TableNumber, &t.Capacity, &t.QRCode, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByStore returns every table of a store ordered by id.
func (r *TableRepo) ListByStore(ctx context.Context, storeID uint64) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+tableColumns+" FROM tables WHERE store_id = ? ORDER BY id", storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tables := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *t)
	}
	return tables, rows.Err()
}

// GetByID fetches a table by id within a store.  It returns
// ErrTableNotFound if the table does not exist or belongs to another store.
func (r *TableRepo) GetByID(ctx context.Context, storeID, id uint64) (*model.Table, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tableColumns+" FROM tables WHERE id = ? AND store_id = ?", id, storeID)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	return t, err
}

// GetActiveByQRCode resolves a scan code to its table.  Inactive tables
// are reported as ErrTableNotFound so customers cannot open sessions on
// them.
func (r *TableRepo) GetActiveByQRCode(ctx context.Context, qrCode string) (*model.Table, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tableColumns+" FROM tables WHERE qr_code = ? AND is_active = 1", qrCode)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	return t, err
}

// Create inserts a new table and fills in its ID and timestamps.  A
// duplicate qr_code or table_number within the store yields ErrConflict.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	if t.Capacity == 0 {
		t.Capacity = model.DefaultTableCapacity
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tables (store_id, table_number, capacity, qr_code, is_active) VALUES (?, ?, ?, ?, ?)",
		t.StoreID, t.TableNumber, t.Capacity, t.QRCode, t.IsActive)
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
	t.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM tables WHERE id = ?", t.ID).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// Update overwrites the mutable columns of a table.  The row is matched
// on both id and store_id.
func (r *TableRepo) Update(ctx context.Context, t *model.Table) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tables SET table_number = ?, capacity = ?, qr_code = ?, is_active = ? WHERE id = ? AND store_id = ?",
		t.TableNumber, t.Capacity, t.QRCode, t.IsActive, t.ID, t.StoreID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTableNotFound
	}
	return nil
}

// DeleteCascade removes a table together with its sessions, their orders,
// order items and order history in one transaction.  Children are deleted
// before parents because the schema declares no ON DELETE actions.
func (r *TableRepo) DeleteCascade(ctx context.Context, storeID, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM tables WHERE id = ? AND store_id = ? FOR UPDATE", id, storeID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTableNotFound
		}
		if err != nil {
			return err
		}
		stmts := []string{
			`DELETE h FROM order_history h JOIN orders o ON o.id = h.order_id JOIN table_sessions s ON s.id = o.session_id WHERE s.table_id = ?`,
			`DELETE i FROM order_items i JOIN orders o ON o.id = i.order_id JOIN table_sessions s ON s.id = o.session_id WHERE s.table_id = ?`,
			`DELETE o FROM orders o JOIN table_sessions s ON s.id = o.session_id WHERE s.table_id = ?`,
			`DELETE FROM table_sessions WHERE table_id = ?`,
			`DELETE FROM tables WHERE id = ?`,
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
}
