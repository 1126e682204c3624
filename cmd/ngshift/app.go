package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/ngday-shift-backend/internal/config"
	"github.com/tbourn/ngday-shift-backend/internal/http/handlers"
	"github.com/tbourn/ngday-shift-backend/internal/line"
	"github.com/tbourn/ngday-shift-backend/internal/notify"
	"github.com/tbourn/ngday-shift-backend/internal/observability"
	"github.com/tbourn/ngday-shift-backend/internal/repo"
	"github.com/tbourn/ngday-shift-backend/internal/services"
)

// openDB is a test seam.
var openDB = repo.OpenSQLite

// App holds the application dependencies shared by every command.
type App struct {
	cfg config.Config
	db  *gorm.DB

	delivery   *notify.Delivery
	background *notify.Background
	users      *services.UserService
	requests   *services.RequestService
	shifts     *services.ShiftService
	deadlines  *services.DeadlineService
	reminders  *services.ReminderService

	shutdownOTel func(context.Context) error
}

// newApp opens the database, brings the schema up to date and wires the
// services to the LINE client through the retrying delivery. On error
// everything opened so far is released.
func newApp(ctx context.Context, cfg config.Config) (_ *App, err error) {
	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err != nil {
			if serr := shutdown(context.WithoutCancel(ctx)); serr != nil {
				log.Warn().Err(serr).Msg("tracer shutdown")
			}
		}
	}()

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", cfg.DBPath, err)
	}
	defer func() {
		if err != nil {
			closeDB(db)
		}
	}()

	if cfg.OTEL.Enabled {
		if err = observability.InstrumentDB(db); err != nil {
			return nil, fmt.Errorf("failed to instrument database: %w", err)
		}
	}
	if err = repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info().Str("path", cfg.DBPath).Msg("database ready")

	client, err := line.New(line.Options{
		BaseURL: cfg.Line.BaseURL,
		Token:   cfg.Line.ChannelToken,
		Timeout: cfg.Line.Timeout,
		RPS:     cfg.Line.RPS,
		Burst:   cfg.Line.Burst,
		DryRun:  cfg.Line.DryRun,
	})
	if err != nil {
		return nil, err
	}
	if client.DryRun() {
		log.Warn().Msg("LINE dry-run: messages are logged and never delivered")
	}

	var queue notify.Queue
	if cfg.Notify.Queue == "store" {
		queue = &notify.StoreQueue{DB: db}
	}
	delivery := notify.NewDelivery(client, queue)
	delivery.Policy = notify.Policy{MaxRetries: cfg.Notify.MaxRetries, Delays: cfg.Notify.RetryDelays}

	// request and shift notices go out after the response; reminders need
	// the delivery result for the reminder log
	background := notify.NewBackground(delivery)
	notices := notify.NewNotifier(background)

	deadlines := &services.DeadlineService{DB: db, DefaultDay: cfg.DefaultDeadlineDay}
	return &App{
		cfg:        cfg,
		db:         db,
		delivery:   delivery,
		background: background,
		users:      &services.UserService{DB: db},
		requests:   &services.RequestService{DB: db, Deadlines: deadlines, Notifier: notices},
		shifts:     &services.ShiftService{DB: db, Notifier: notices},
		deadlines:  deadlines,
		reminders: &services.ReminderService{
			DB:         db,
			Deadlines:  deadlines,
			Notifier:   notify.NewNotifier(delivery),
			DaysBefore: cfg.ReminderDaysBefore,
		},
		shutdownOTel: shutdown,
	}, nil
}

func (a *App) deps() handlers.Deps {
	return handlers.Deps{
		Users:     a.users,
		Requests:  a.requests,
		Shifts:    a.shifts,
		Deadlines: a.deadlines,
		Reminders: a.reminders,
		Queue:     a.delivery,
		Location:  a.cfg.Location(),
	}
}

// Close waits for in-flight notices, flushes traces and releases the
// database.
func (a *App) Close(ctx context.Context) {
	if !a.background.Wait(ctx) {
		log.Warn().Msg("notices still sending at shutdown")
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}
	closeDB(a.db)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
