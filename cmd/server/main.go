// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/myecomstore/backend/internal/config"
	"github.com/myecomstore/backend/internal/database"
	"github.com/myecomstore/backend/internal/inventory"
	"github.com/myecomstore/backend/internal/metrics"
	"github.com/myecomstore/backend/internal/router"
	"github.com/myecomstore/backend/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	setupLogging(cfg)
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}
	if cfg.Database.SeedOnBoot {
		if err := database.SeedInitialData(db); err != nil {
			logrus.WithError(err).Fatal("Failed to seed initial data")
		}
	}

	checkoutMetrics := metrics.NewCheckoutMetrics()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	startHoldSweeper(sweepCtx, db, cfg, checkoutMetrics)

	engine := router.Setup(db, cfg, checkoutMetrics)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server")

	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Forced shutdown")
	}
	logrus.Info("Server stopped")
}

func setupLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// startHoldSweeper periodically deletes expired stock holds. The ledger
// already reclaims lazily under the row lock, so the sweeper only keeps the
// reservations table small on products nobody touches; interval 0 disables it.
func startHoldSweeper(ctx context.Context, db *gorm.DB, cfg *config.Config, m *metrics.CheckoutMetrics) {
	interval := time.Duration(cfg.Checkout.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		return
	}

	ledger := inventory.NewLedger()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				swept, err := ledger.SweepExpired(db)
				if err != nil {
					logrus.WithError(err).Warn("Hold sweep failed")
					continue
				}
				if swept > 0 {
					m.HoldsSwept.Add(float64(swept))
					logrus.WithField("count", swept).Debug("Swept expired holds")
				}
			}
		}
	}()
}
