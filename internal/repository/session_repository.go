package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/table-order/internal/model"
)

// SessionRepo provides data access to the table_sessions table.  Only the
// SHA-256 hash of a session token is ever written; the raw token lives in
// memory for the duration of the request that created it.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionSelect = `SELECT s.id, s.table_id, t.store_id, s.token_hash, s.started_at, s.ended_at
               FROM table_sessions s
               JOIN tables t ON t.id = s.table_id`

func scanSession(s rowScanner) (*model.Session, error) {
	var (
		sess  model.Session
		ended sql.NullTime
	)
	if err := s.Scan(&sess.ID, &sess.TableID, &sess.StoreID, &sess.TokenHash, &sess.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}

// CreateForTable opens a session on a table.  The table row is locked
// FOR UPDATE so concurrent attempts for the same table serialize here.
// When another session is still open, ErrActiveSession is returned unless
// takeover is set, in which case the open session is ended at startedAt
// inside the same transaction.  The ID of a session ended that way is
// returned as replaced (0 otherwise).
func (r *SessionRepo) CreateForTable(ctx context.Context, tableID uint64, tokenHash string, startedAt time.Time, takeover bool) (sess *model.Session, replaced uint64, err error) {
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			storeID uint64
			active  bool
		)
		err := tx.QueryRowContext(ctx, `SELECT store_id, is_active FROM tables WHERE id = ? FOR UPDATE`, tableID).Scan(&storeID, &active)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
			return ErrTableNotFound
		}
		if err != nil {
			return err
		}

		var openID uint64
		err = tx.QueryRowContext(ctx, `SELECT id FROM table_sessions WHERE table_id = ? AND ended_at IS NULL FOR UPDATE`, tableID).Scan(&openID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		case !takeover:
			return ErrActiveSession
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE table_sessions SET ended_at = ? WHERE id = ?`, startedAt, openID); err != nil {
				return err
			}
			replaced = openID
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO table_sessions (table_id, token_hash, started_at) VALUES (?, ?, ?)`,
			tableID, tokenHash, startedAt)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrActiveSession
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		sess = &model.Session{
			ID:        uint64(id),
			TableID:   tableID,
			StoreID:   storeID,
			TokenHash: tokenHash,
			StartedAt: startedAt,
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return sess, replaced, nil
}

// GetActiveByTable returns the open session of a table or
// ErrSessionNotFound when the table has none.
func (r *SessionRepo) GetActiveByTable(ctx context.Context, tableID uint64) (*model.Session, error) {
	return r.getOne(ctx, sessionSelect+` WHERE s.table_id = ? AND s.ended_at IS NULL`, tableID)
}

// GetByID returns a session regardless of whether it has ended.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	return r.getOne(ctx, sessionSelect+` WHERE s.id = ?`, id)
}

// GetByTokenHash resolves a hashed bearer token to its session.
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	return r.getOne(ctx, sessionSelect+` WHERE s.token_hash = ?`, tokenHash)
}

func (r *SessionRepo) getOne(ctx context.Context, q string, arg any) (*model.Session, error) {
	sess, err := scanSession(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// End sets ended_at on an open session.  It returns ErrSessionNotFound for
// an unknown id and ErrSessionEnded when the session is already closed.
func (r *SessionRepo) End(ctx context.Context, id uint64, at time.Time) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var ended sql.NullTime
		err := tx.QueryRowContext(ctx, `SELECT ended_at FROM table_sessions WHERE id = ? FOR UPDATE`, id).Scan(&ended)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if ended.Valid {
			return ErrSessionEnded
		}
		_, err = tx.ExecContext(ctx, `UPDATE table_sessions SET ended_at = ? WHERE id = ?`, at, id)
		return err
	})
}

// EndStartedBefore closes every open session that started before cutoff
// and returns how many were closed.
func (r *SessionRepo) EndStartedBefore(ctx context.Context, cutoff, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE table_sessions SET ended_at = ? WHERE ended_at IS NULL AND started_at < ?`, at, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EndAll closes every open session.  It backs the operator command that
// resets the floor at closing time.
func (r *SessionRepo) EndAll(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE table_sessions SET ended_at = ? WHERE ended_at IS NULL`, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
