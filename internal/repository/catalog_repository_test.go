package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-order/internal/model"
)

func TestTableRepo_DeleteCascade(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM tables WHERE id = ? AND store_id = ? FOR UPDATE")).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	for _, prefix := range []string{
		"DELETE h FROM order_history",
		"DELETE i FROM order_items",
		"DELETE o FROM orders",
		"DELETE FROM table_sessions WHERE table_id = ?",
		"DELETE FROM tables WHERE id = ?",
	} {
		mock.ExpectExec(regexp.QuoteMeta(prefix)).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, NewTableRepo(db).DeleteCascade(context.Background(), 1, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableRepo_DeleteCascade_OtherStore(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM tables")).
		WithArgs(5, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, NewTableRepo(db).DeleteCascade(context.Background(), 2, 5), ErrTableNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableRepo_Create_DefaultsCapacityAndMapsDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tables")).
		WithArgs(1, "A1", model.DefaultTableCapacity, "qr-a1", true).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	tbl := &model.Table{StoreID: 1, TableNumber: "A1", QRCode: "qr-a1", IsActive: true}
	err := NewTableRepo(db).Create(context.Background(), tbl)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, uint32(model.DefaultTableCapacity), tbl.Capacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableRepo_GetActiveByQRCode(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tables WHERE qr_code = ? AND is_active = 1")).
		WithArgs("qr-a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "table_number", "capacity", "qr_code", "is_active", "created_at", "updated_at"}).
			AddRow(5, 1, "A1", 4, "qr-a1", true, started, started))

	tbl, err := NewTableRepo(db).GetActiveByQRCode(context.Background(), "qr-a1")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), tbl.ID)
	assert.Equal(t, "A1", tbl.TableNumber)
}

func TestMenuRepo_DeleteCategory_MovesMenus(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE id = ? AND store_id = ? FOR UPDATE")).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE store_id = ? AND id <> ? ORDER BY id LIMIT 1")).
		WithArgs(1, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE menus SET category_id = ? WHERE category_id = ?")).
		WithArgs(1, 7).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories WHERE id = ?")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	moved, err := NewMenuRepo(db).DeleteCategory(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMenuRepo_DeleteCategory_Last(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE store_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := NewMenuRepo(db).DeleteCategory(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMenuRepo_CreateMenu_ForeignCategory(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO menus")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewMenuRepo(db).CreateMenu(context.Background(), 1, &model.Menu{CategoryID: 9, Name: "Soup", Price: 8000, IsAvailable: true})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMenuRepo_GetMenusByIDs(t *testing.T) {
	db, mock := newMock(t)
	desc := "spicy"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.store_id = ? AND m.id IN (?, ?)")).
		WithArgs(1, 3, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "name", "description", "price", "image_url", "allergens", "is_available", "created_at", "updated_at"}).
			AddRow(3, 1, "Bibimbap", desc, 10000, nil, nil, true, started, started))

	menus, err := NewMenuRepo(db).GetMenusByIDs(context.Background(), 1, []uint64{3, 4})
	require.NoError(t, err)
	require.Contains(t, menus, uint64(3))
	assert.NotContains(t, menus, uint64(4))
	require.NotNil(t, menus[3].Description)
	assert.Equal(t, "spicy", *menus[3].Description)
	assert.Nil(t, menus[3].ImageURL)
}

func TestMenuRepo_DisableMenu(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET m.is_available = 0 WHERE m.id = ? AND c.store_id = ?")).
		WithArgs(3, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewMenuRepo(db).DisableMenu(context.Background(), 1, 3), ErrMenuNotFound)
}

func TestAdminRepo_GetByUsernameStoreID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE username = ?")).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "username", "password_hash", "created_at", "updated_at"}).
			AddRow(1, 1, "admin", "$2a$hash", started, started))

	a, err := NewAdminRepo(db).GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.StoreID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE username = ?")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "username", "password_hash", "created_at", "updated_at"}))
	_, err = NewAdminRepo(db).GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAdminNotFound)
}
