package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/bazaarmate/backend/internal/auth"
	"github.com/bazaarmate/backend/internal/config"
	"github.com/bazaarmate/backend/internal/es"
	"github.com/bazaarmate/backend/internal/events"
	"github.com/bazaarmate/backend/internal/handlers"
	"github.com/bazaarmate/backend/internal/httpserver"
	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/models"
	"github.com/bazaarmate/backend/internal/password"
	"github.com/bazaarmate/backend/internal/ratelimit"
	"github.com/bazaarmate/backend/internal/revocation"
	"github.com/bazaarmate/backend/internal/tokens"
	"github.com/bazaarmate/backend/pkg/db"
	"github.com/bazaarmate/backend/pkg/logging"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gormDB, err := db.Open(initCtx, cfg.DatabaseURL, db.Pool{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := models.AutoMigrate(gormDB); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	limiter := ratelimit.New(ratelimit.NewRedisStore(redisClient), map[ratelimit.Scope]ratelimit.Rule{
		ratelimit.ScopeLogin:         {Ceiling: cfg.RateLogin.Ceiling, Window: cfg.RateLogin.Window},
		ratelimit.ScopeRegister:      {Ceiling: cfg.RateRegister.Ceiling, Window: cfg.RateRegister.Window},
		ratelimit.ScopePasswordReset: {Ceiling: cfg.RatePasswordReset.Ceiling, Window: cfg.RatePasswordReset.Window},
	})

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
	}

	pwConfig := password.DefaultConfig()
	pwConfig.MinLength = cfg.PasswordMinLength

	codec := tokens.NewCodec(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.TokenLeeway)
	revoked := revocation.NewStore(gormDB)

	authSvc := &auth.Service{
		Repo:     auth.NewRepo(gormDB),
		Codec:    codec,
		Revoked:  revoked,
		Limiter:  limiter,
		Password: pwConfig,
		Producer: producer,
	}

	deps := &httpserver.Deps{
		DB:       gormDB,
		Auth:     middleware.NewAuth(authSvc),
		AuthH:    &handlers.AuthHandler{Svc: authSvc},
		AdminH:   &handlers.AdminHandler{Repo: authSvc.Repo},
		SellerH:  &handlers.SellerHandler{DB: gormDB},
		ProductH: &handlers.ProductHandler{DB: gormDB, Producer: producer},
		CartH:    &handlers.CartHandler{DB: gormDB},
		OrderH:   &handlers.OrderHandler{DB: gormDB, Producer: producer},
		ReviewH:  &handlers.ReviewHandler{DB: gormDB},
		WishH:    &handlers.WishlistHandler{DB: gormDB},
		MessageH: &handlers.MessageHandler{DB: gormDB},
		PayoutH:  &handlers.PayoutHandler{DB: gormDB},
	}

	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		deps.SearchH = &handlers.SearchHandler{ES: esClient, Index: "product"}
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(logger))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go purgeLoop(sweepCtx, revoked, logger)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	logger.Info("shutdown complete")
}

// purgeLoop sweeps expired revocation records hourly. Housekeeping only:
// token verification never depends on the sweep having run.
func purgeLoop(ctx context.Context, store *revocation.Store, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				logger.Error("revocation purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("revocation purge", "removed", n)
			}
		}
	}
}
