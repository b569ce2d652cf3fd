// Command seedadmin creates a staff account, or resets its password when
// the username is already taken.
package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/iliyamo/table-order/internal/config"
	"github.com/iliyamo/table-order/internal/database"
	"github.com/iliyamo/table-order/internal/logging"
	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/repository"
	"github.com/iliyamo/table-order/internal/utils"
)

func main() {
	username := flag.String("username", "admin", "login name")
	password := flag.String("password", "admin123", "plain password")
	storeID := flag.Uint64("store", 1, "store the admin manages")
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if _, err := database.Migrate(db); err != nil {
			log.WithError(err).Fatal("migrate database")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admins := repository.NewAdminRepo(db)
	if _, err := admins.GetStore(ctx, *storeID); err != nil {
		log.WithError(err).WithField("store_id", *storeID).Fatal("lookup store")
	}
	hash, err := utils.HashPassword(*password, cfg.BcryptCost)
	if err != nil {
		log.WithError(err).Fatal("hash password")
	}

	a := &model.Admin{StoreID: *storeID, Username: *username, PasswordHash: hash}
	err = admins.Create(ctx, a)
	switch {
	case err == nil:
		log.WithField("admin_id", a.ID).Info("admin created")
	case errors.Is(err, repository.ErrConflict):
		if err := admins.UpdatePassword(ctx, *username, hash); err != nil {
			log.WithError(err).Fatal("update password")
		}
		log.WithField("username", *username).Info("admin password updated")
	default:
		log.WithError(err).Fatal("create admin")
	}
}
