package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/table-order/internal/model"
)

// MenuRepo encapsulates queries on categories and menus.  Menus do not
// carry a store_id of their own; store scoping always goes through the
// owning category.
type MenuRepo struct {
	db *sql.DB
}

// NewMenuRepo constructs a MenuRepo with the provided DB handle.
func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{db: db} }

const categoryColumns = "id, store_id, name, display_order, created_at, updated_at"

const menuSelect = `SELECT m.id, m.category_id, m.name, m.description, m.price, m.image_url, m.allergens, m.is_available, m.created_at, m.updated_at
               FROM menus m
               JOIN categories c ON c.id = m.category_id`

func scanCategory(s rowScanner) (*model.Category, error) {
	var c model.Category
	if err := s.Scan(&c.ID, &c.StoreID, &c.Name, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanMenu(s rowScanner) (*model.Menu, error) {
	var (
		m                     model.Menu
		desc, image, allergen sql.NullString
	)
	if err := s.Scan(&m.ID, &m.CategoryID, &m.Name, &desc, &m.Price, &image, &allergen, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Description = nullString(desc)
	m.ImageURL = nullString(image)
	m.Allergens = nullString(allergen)
	return &m, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// ListCategories returns the categories of a store in display order.
func (r *MenuRepo) ListCategories(ctx context.Context, storeID uint64) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE store_id = ? ORDER BY display_order, id", storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetCategory fetches one category of a store.
func (r *MenuRepo) GetCategory(ctx context.Context, storeID, id uint64) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ? AND store_id = ?", id, storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	return c, err
}

// CreateCategory inserts a category and fills in its ID and timestamps.
func (r *MenuRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO categories (store_id, name, display_order) VALUES (?, ?, ?)", c.StoreID, c.Name, c.DisplayOrder)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM categories WHERE id = ?", c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// UpdateCategory overwrites name and display order.
func (r *MenuRepo) UpdateCategory(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx, "UPDATE categories SET name = ?, display_order = ? WHERE id = ? AND store_id = ?", c.Name, c.DisplayOrder, c.ID, c.StoreID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory removes a category after moving its menus to the store's
// lowest-id remaining category.  Deleting the only category of a store
// yields ErrConflict.  It returns the id of the category that received
// the menus.
func (r *MenuRepo) DeleteCategory(ctx context.Context, storeID, id uint64) (movedTo uint64, err error) {
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var found uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM categories WHERE id = ? AND store_id = ? FOR UPDATE", id, storeID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		if err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx, "SELECT id FROM categories WHERE store_id = ? AND id <> ? ORDER BY id LIMIT 1", storeID, id).Scan(&movedTo)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConflict
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE menus SET category_id = ? WHERE category_id = ?", movedTo, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return movedTo, nil
}

// ListMenus returns the menus of a store ordered by category display
// order.  When availableOnly is set, soft-deleted menus are skipped.  A
// non-zero categoryID narrows the list to that category.
func (r *MenuRepo) ListMenus(ctx context.Context, storeID uint64, categoryID uint64, availableOnly bool) ([]model.Menu, error) {
	q := menuSelect + " WHERE c.store_id = ?"
	args := []any{storeID}
	if categoryID != 0 {
		q += " AND m.category_id = ?"
		args = append(args, categoryID)
	}
	if availableOnly {
		q += " AND m.is_available = 1"
	}
	q += " ORDER BY c.display_order, c.id, m.id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Menu{}
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetMenu fetches one menu of a store, available or not.
func (r *MenuRepo) GetMenu(ctx context.Context, storeID, id uint64) (*model.Menu, error) {
	m, err := scanMenu(r.db.QueryRowContext(ctx, menuSelect+" WHERE m.id = ? AND c.store_id = ?", id, storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMenuNotFound
	}
	return m, err
}

// GetMenusByIDs loads the given menus of a store keyed by id.  IDs that do
// not exist or belong to another store are simply absent from the map.
func (r *MenuRepo) GetMenusByIDs(ctx context.Context, storeID uint64, ids []uint64) (map[uint64]model.Menu, error) {
	out := make(map[uint64]model.Menu, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, storeID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, menuSelect+" WHERE c.store_id = ? AND m.id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = *m
	}
	return out, rows.Err()
}

// CreateMenu inserts a menu under a category of the given store.  The
// insert selects from categories so a category of another store matches
// no row and ErrCategoryNotFound is returned.
func (r *MenuRepo) CreateMenu(ctx context.Context, storeID uint64, m *model.Menu) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO menus (category_id, name, description, price, image_url, allergens, is_available)
         SELECT id, ?, ?, ?, ?, ?, ? FROM categories WHERE id = ? AND store_id = ?`,
		m.Name, m.Description, m.Price, m.ImageURL, m.Allergens, m.IsAvailable, m.CategoryID, storeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCategoryNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM menus WHERE id = ?", m.ID).Scan(&m.CreatedAt, &m.UpdatedAt)
}

// UpdateMenu overwrites the mutable columns of a menu.  Both the current
// and the target category must belong to storeID.
func (r *MenuRepo) UpdateMenu(ctx context.Context, storeID uint64, m *model.Menu) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menus m
         JOIN categories cur ON cur.id = m.category_id AND cur.store_id = ?
         JOIN categories dst ON dst.id = ? AND dst.store_id = ?
         SET m.category_id = dst.id, m.name = ?, m.description = ?, m.price = ?, m.image_url = ?, m.allergens = ?, m.is_available = ?
         WHERE m.id = ?`,
		storeID, m.CategoryID, storeID, m.Name, m.Description, m.Price, m.ImageURL, m.Allergens, m.IsAvailable, m.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMenuNotFound
	}
	return nil
}

// DisableMenu soft-deletes a menu by clearing is_available.  Order items
// keep referencing the row, which is why menus are never hard-deleted.
func (r *MenuRepo) DisableMenu(ctx context.Context, storeID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menus m JOIN categories c ON c.id = m.category_id SET m.is_available = 0 WHERE m.id = ? AND c.store_id = ?`,
		id, storeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMenuNotFound
	}
	return nil
}
