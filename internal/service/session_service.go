package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-order/internal/metrics"
	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/repository"
	"github.com/iliyamo/table-order/internal/utils"
)

// Session conflict policies.
const (
	ConflictReject   = "reject"
	ConflictTakeover = "takeover"
)

// SessionService manages table sessions.  At most one session per table is
// open at any time; creation for a given table is serialized in-process by
// a keyed mutex and in the database by the table row lock and the unique
// key on open sessions.
type SessionService struct {
	sessions SessionStore
	tables   TableLookup
	takeover bool
	locks    *keyedMutex
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewSessionService wires a SessionService.  policy is ConflictReject or
// ConflictTakeover; anything else is treated as reject.
func NewSessionService(sessions SessionStore, tables TableLookup, policy string, log logrus.FieldLogger) *SessionService {
	return &SessionService{
		sessions: sessions,
		tables:   tables,
		takeover: policy == ConflictTakeover,
		locks:    newKeyedMutex(),
		now:      time.Now,
		log:      log.WithField("component", "sessions"),
	}
}

// CreateSession opens a session on tableID and returns it with its raw
// bearer token in Token.  Under the reject policy an open session yields
// ErrActiveSessionExists; under takeover the open session is ended first.
func (s *SessionService) CreateSession(ctx context.Context, tableID uint64) (*model.Session, error) {
	token, err := utils.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	unlock := s.locks.Lock(tableID)
	defer unlock()

	sess, replaced, err := s.sessions.CreateForTable(ctx, tableID, utils.HashToken(token), s.now().UTC(), s.takeover)
	switch {
	case errors.Is(err, repository.ErrActiveSession):
		return nil, ErrActiveSessionExists
	case errors.Is(err, repository.ErrTableNotFound):
		return nil, ErrTableNotFound
	case err != nil:
		return nil, fmt.Errorf("create session for table %d: %w", tableID, err)
	}
	sess.Token = token

	entry := s.log.WithFields(logrus.Fields{"session_id": sess.ID, "table_id": tableID, "store_id": sess.StoreID})
	if replaced != 0 {
		metrics.SessionsEnded("takeover", 1)
		entry = entry.WithField("replaced_session_id", replaced)
	}
	metrics.SessionOpened()
	entry.Info("session opened")
	return sess, nil
}

// OpenByQRCode resolves an active table by its scan code and opens a
// session on it.
func (s *SessionService) OpenByQRCode(ctx context.Context, qrCode string) (*model.Session, *model.Table, error) {
	if qrCode == "" {
		return nil, nil, ErrTableNotFound
	}
	t, err := s.tables.GetActiveByQRCode(ctx, qrCode)
	if errors.Is(err, repository.ErrTableNotFound) {
		return nil, nil, ErrTableNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.CreateSession(ctx, t.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, t, nil
}

// GetActiveSession returns the open session of a table, or nil when there
// is none.  It always reads the store.
func (s *SessionService) GetActiveSession(ctx context.Context, tableID uint64) (*model.Session, error) {
	sess, err := s.sessions.GetActiveByTable(ctx, tableID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// EndSession closes a session.  Ending an unknown session yields
// ErrSessionNotFound and ending a closed one ErrSessionAlreadyEnded.
func (s *SessionService) EndSession(ctx context.Context, sessionID uint64) error {
	err := s.sessions.End(ctx, sessionID, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrSessionEnded):
		return ErrSessionAlreadyEnded
	case err != nil:
		return fmt.Errorf("end session %d: %w", sessionID, err)
	}
	metrics.SessionsEnded("ended", 1)
	s.log.WithField("session_id", sessionID).Info("session ended")
	return nil
}

// EndTableSession ends the open session of a table.  It returns
// ErrSessionNotFound when the table has none.
func (s *SessionService) EndTableSession(ctx context.Context, tableID uint64) (*model.Session, error) {
	sess, err := s.GetActiveSession(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if err := s.EndSession(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// ResolveToken maps a raw bearer token to its session.  Unknown tokens
// yield ErrSessionNotFound; tokens of closed sessions ErrSessionNotActive.
func (s *SessionService) ResolveToken(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.sessions.GetByTokenHash(ctx, utils.HashToken(token))
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, ErrSessionNotActive
	}
	return sess, nil
}

// EndByToken is the customer logout: it ends the session the token
// belongs to.
func (s *SessionService) EndByToken(ctx context.Context, token string) error {
	sess, err := s.ResolveToken(ctx, token)
	if err != nil {
		return err
	}
	return s.EndSession(ctx, sess.ID)
}

// EndStaleSessions ends every open session that started more than maxAge
// ago and returns how many were ended.
func (s *SessionService) EndStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	now := s.now().UTC()
	n, err := s.sessions.EndStartedBefore(ctx, now.Add(-maxAge), now)
	if err != nil {
		return 0, fmt.Errorf("end stale sessions: %w", err)
	}
	metrics.SessionsEnded("stale", int(n))
	if n > 0 {
		s.log.WithField("count", n).Info("stale sessions ended")
	}
	return n, nil
}

// EndAllSessions ends every open session.
func (s *SessionService) EndAllSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.EndAll(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("end all sessions: %w", err)
	}
	metrics.SessionsEnded("reset", int(n))
	s.log.WithField("count", n).Info("all sessions ended")
	return n, nil
}
