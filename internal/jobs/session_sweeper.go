// Package jobs holds the scheduled background work of the server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// runTimeout bounds a single sweep.
const runTimeout = time.Minute

// StaleSessionEnder ends sessions that have been open longer than maxAge.
type StaleSessionEnder interface {
	EndStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error)
}

// SessionSweeper periodically closes table sessions that customers never
// logged out of.
type SessionSweeper struct {
	sessions StaleSessionEnder
	maxAge   time.Duration
	log      logrus.FieldLogger
	cron     *cron.Cron
}

func NewSessionSweeper(sessions StaleSessionEnder, maxAge time.Duration, log logrus.FieldLogger) *SessionSweeper {
	log = log.WithField("component", "session_sweeper")
	return &SessionSweeper{
		sessions: sessions,
		maxAge:   maxAge,
		log:      log,
		cron: cron.New(
			cron.WithLogger(cronLogger{log}),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
		),
	}
}

// RunOnce performs one sweep and returns the number of sessions ended.
func (s *SessionSweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	n, err := s.sessions.EndStaleSessions(ctx, s.maxAge)
	if err != nil {
		s.log.WithError(err).Error("sweep stale sessions")
		return 0, err
	}
	if n > 0 {
		s.log.WithField("ended", n).Info("ended stale sessions")
	}
	return n, nil
}

// Start schedules the sweep on a cron spec such as "@every 10m".
func (s *SessionSweeper) Start(spec string) error {
	if s.maxAge <= 0 {
		return fmt.Errorf("session sweeper: max age must be positive, got %s", s.maxAge)
	}
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("session sweeper: schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.WithFields(logrus.Fields{"spec": spec, "max_age": s.maxAge.String()}).Info("session sweeper started")
	return nil
}

// Stop unschedules the sweep and waits for a running one to finish or ctx
// to expire.
func (s *SessionSweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts a logrus logger to cron.Logger.
type cronLogger struct{ log logrus.FieldLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.WithFields(kvFields(kv)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.WithError(err).WithFields(kvFields(kv)).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
