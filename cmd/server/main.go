package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-order/internal/config"
	"github.com/iliyamo/table-order/internal/database"
	"github.com/iliyamo/table-order/internal/handler"
	"github.com/iliyamo/table-order/internal/jobs"
	"github.com/iliyamo/table-order/internal/logging"
	"github.com/iliyamo/table-order/internal/middleware"
	"github.com/iliyamo/table-order/internal/queue"
	"github.com/iliyamo/table-order/internal/realtime"
	"github.com/iliyamo/table-order/internal/repository"
	"github.com/iliyamo/table-order/internal/router"
	"github.com/iliyamo/table-order/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load() // Load environment config
	log := logging.New(cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if cfg.MigrateOnStart {
		v, err := database.Migrate(db)
		if err != nil {
			log.WithError(err).Fatal("migrate database")
		}
		log.WithField("version", v).Info("schema up to date")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	sessions := repository.NewSessionRepo(db)
	tables := repository.NewTableRepo(db)
	menus := repository.NewMenuRepo(db)
	orders := repository.NewOrderRepo(db)
	admins := repository.NewAdminRepo(db)

	// Event publishing is optional; a nil interface disables it.
	var events service.EventPublisher
	var publisher *queue.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL, log)
		events = publisher
		go func() {
			if err := queue.StartOrderConsumer(ctx, cfg.RabbitURL, queue.DefaultAuditLog, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("order consumer stopped")
			}
		}()
	}

	hub := realtime.NewHub(log)
	sessionSvc := service.NewSessionService(sessions, tables, cfg.SessionConflictPolicy, log)
	orderSvc := service.NewOrderService(orders, menus, sessions, hub, events, cfg.StoreLocation, log)
	authSvc := service.NewAuthService(admins, cfg.JWTSecret, cfg.AdminTokenTTL, log)

	// Redis backs the rate limiter and the menu cache.  Both degrade
	// gracefully without it.
	var rdb *redis.Client
	if rc := config.LoadRedisConfig(); !rc.Disabled() {
		rdb, err = config.NewRedisClient(ctx, rc)
		if err != nil {
			log.WithError(err).Warn("redis unavailable; using in-process rate limiting and no menu cache")
			rdb = nil
		}
	}
	cacheCfg := config.LoadCacheConfig()
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(cacheCfg, rdb)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
				"ip":      v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	}))
	e.Use(middleware.Metrics())

	customer := handler.NewCustomerHandler(sessionSvc, orderSvc, menus)
	admin := handler.NewAdminHandler(authSvc, orderSvc, sessionSvc, tables, menus)
	admin.InvalidateMenus = func(ctx context.Context) {
		if n, err := middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix); err != nil {
			log.WithError(err).Warn("invalidate menu cache")
		} else if n > 0 {
			log.WithField("keys", n).Debug("menu cache invalidated")
		}
	}
	ws := handler.NewRealtimeHandler(hub, cfg.WSSendBuffer, log)

	router.RegisterRoutes(e, db) // Register application routes
	router.RegisterCustomer(e, customer, sessionSvc, limit, cache)
	router.RegisterAdmin(e, admin, authSvc, limit)
	router.RegisterRealtime(e, ws, authSvc)

	sweeper := jobs.NewSessionSweeper(sessionSvc, cfg.SessionMaxAge, log)
	if cfg.SessionMaxAge > 0 {
		if err := sweeper.Start(cfg.SessionSweepSpec); err != nil {
			log.WithError(err).Fatal("start session sweeper")
		}
	}

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	sweeper.Stop(shutdownCtx)
	hub.Close()
	orderSvc.Wait()
	if publisher != nil {
		_ = publisher.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := db.Close(); err != nil {
		log.WithError(err).Warn("close database")
	}
}
