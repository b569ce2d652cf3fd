// Command clearsessions ends every active table session, e.g. at closing
// time.
package main

import (
	"context"
	"time"

	"github.com/iliyamo/table-order/internal/config"
	"github.com/iliyamo/table-order/internal/database"
	"github.com/iliyamo/table-order/internal/logging"
	"github.com/iliyamo/table-order/internal/repository"
	"github.com/iliyamo/table-order/internal/service"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessions := service.NewSessionService(repository.NewSessionRepo(db), repository.NewTableRepo(db), cfg.SessionConflictPolicy, log)
	n, err := sessions.EndAllSessions(ctx)
	if err != nil {
		log.WithError(err).Fatal("end sessions")
	}
	log.WithField("ended", n).Info("active sessions ended")
}
