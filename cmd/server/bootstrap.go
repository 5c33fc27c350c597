package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/api"
	"github.com/oversightlab/missiondesk/internal/app"
	"github.com/oversightlab/missiondesk/internal/app/maintenance"
	iauth "github.com/oversightlab/missiondesk/internal/auth"
	"github.com/oversightlab/missiondesk/internal/database"
	"github.com/oversightlab/missiondesk/internal/outbox"
	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/internal/storage"
	"github.com/oversightlab/missiondesk/pkg/logger"
	"github.com/oversightlab/missiondesk/pkg/mail"
)

// runtimeStack bundles long-lived components used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	SessionSvc *iauth.SessionService
	Dispatcher *outbox.Dispatcher
	Runner     *maintenance.Runner
	Router     *gin.Engine

	cancelDispatch context.CancelFunc
}

// bootstrapRuntime initialises the database, services, background jobs and
// the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}
	stack.DB = db

	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.SessionSvc, err = iauth.NewSessionService(db, jwtService, cfg.Auth.SessionServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	store, err := storage.NewFilesystemStore(cfg.Storage.UploadsDir, cfg.Storage.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialise blob store: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	stack.Dispatcher, err = outbox.NewDispatcher(db, mailer)
	if err != nil {
		return nil, fmt.Errorf("initialise outbox dispatcher: %w", err)
	}

	invitationSvc, err := services.NewInvitationService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise invitation service: %w", err)
	}

	stack.Runner = maintenance.NewRunner(stack.SessionSvc, invitationSvc, stack.Dispatcher,
		maintenance.WithSessionSchedule(cfg.Jobs.SessionSchedule),
		maintenance.WithInvitationSchedule(cfg.Jobs.InvitationSchedule),
		maintenance.WithOutboxSchedule(cfg.Jobs.OutboxSchedule),
	)

	stack.Router, err = api.NewRouter(db, jwtService, stack.SessionSvc, store, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	interval := cfg.Jobs.OutboxInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	dispatchCtx, cancel := context.WithCancel(ctx)
	stack.cancelDispatch = cancel
	go stack.Dispatcher.Run(dispatchCtx, interval)

	if err := stack.Runner.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	log.Info("runtime initialised",
		zap.String("driver", cfg.Database.Driver),
		zap.String("uploads", cfg.Storage.UploadsDir),
	)
	return stack, nil
}

// Shutdown stops background jobs and closes the database.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s.cancelDispatch != nil {
		s.cancelDispatch()
	}
	if s.Runner != nil {
		<-s.Runner.Stop().Done()
	}
	closeDatabase(s.DB, log)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	dbCfg.Driver = strings.ToLower(strings.TrimSpace(dbCfg.Driver))
	if dbCfg.Driver == "" {
		dbCfg.Driver = "sqlite"
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database failed", zap.Error(err))
	}
}
