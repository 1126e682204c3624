package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/ngday-shift-backend/internal/domain"
	httpapi "github.com/tbourn/ngday-shift-backend/internal/http"
	"github.com/tbourn/ngday-shift-backend/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API and run the reminder and queue schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			gin.SetMode(cfg.GinMode)

			r := gin.New()
			httpapi.RegisterRoutes(r, app.db, app.deps(), cfg)

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           r,
				ReadTimeout:       cfg.ReadTimeout,
				ReadHeaderTimeout: cfg.ReadHeaderTimeout,
				WriteTimeout:      cfg.WriteTimeout,
				IdleTimeout:       cfg.IdleTimeout,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
			}

			sched, err := scheduler.New(cfg.ReminderRule, cfg.Location(), app.reminders, app.delivery, cfg.Notify.FlushInterval)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() { _ = sched.Run(ctx) }()

			errc := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				return fmt.Errorf("graceful shutdown: %w", err)
			}
			return nil
		},
	}
}

func remindCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send the deadline reminder batch for a day (default today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today := domain.Today(app.cfg.Location())
			if date != "" {
				d, err := domain.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				today = d
			}

			ok, days := app.reminders.ShouldSendReminder(cmd.Context(), today)
			target := app.reminders.TargetMonth(today)
			sent, err := app.reminders.SendReminders(cmd.Context(), today)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Date:                %s\n", today)
			fmt.Fprintf(out, "Target month:        %s\n", target)
			fmt.Fprintf(out, "Days until deadline: %d\n", days)
			fmt.Fprintf(out, "Reminder day:        %t\n", ok)
			fmt.Fprintf(out, "Reminders sent:      %d\n", sent)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to evaluate (YYYY-MM-DD)")
	return cmd
}

func flushQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-queue",
		Short: "Retry queued notifications once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			delivered, err := app.delivery.ProcessQueue(cmd.Context())
			if err != nil {
				return err
			}
			pending, err := app.delivery.QueueLen(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delivered: %d\nPending:   %d\n", delivered, pending)
			return nil
		},
	}
}

func provisionAdminCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "provision-admin",
		Short: "Create an admin user and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := app.users.ProvisionAdmin(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "admin display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
