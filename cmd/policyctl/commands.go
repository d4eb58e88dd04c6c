package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bongitrade/policy-service/internal/app"
	"github.com/bongitrade/policy-service/internal/config"
	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/notify"
	"github.com/bongitrade/policy-service/internal/observability"
	"github.com/bongitrade/policy-service/internal/persistence"
	"github.com/bongitrade/policy-service/internal/service"
	"github.com/bongitrade/policy-service/migrations"
)

// operator is the identity recorded on events raised from the CLI.
var operator = &domain.Identity{UserID: "policyctl", Role: domain.RoleAdmin}

func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func withContainer(ctx context.Context, fn func(*app.Container) error, tweaks ...func(*config.Config)) error {
	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	for _, tweak := range tweaks {
		tweak(cfg)
	}

	container, err := app.New(ctx, cfg, logger)
	defer container.Close()
	if err != nil {
		return err
	}
	return fn(container)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), migrations.FS, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func bootstrapAdminCmd() *cobra.Command {
	var input service.AccountInput
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the first admin account",
		Long: `Create the first admin account. The command refuses to run once an
admin exists. The password is read from --password or POLICYCTL_ADMIN_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input.Password == "" {
				input.Password = os.Getenv("POLICYCTL_ADMIN_PASSWORD")
			}
			return withContainer(cmd.Context(), func(c *app.Container) error {
				user, err := c.Auth.BootstrapAdmin(cmd.Context(), input)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.Name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&input.Username, "username", "admin", "login username")
	cmd.Flags().StringVar(&input.Email, "email", "", "login email")
	cmd.Flags().StringVar(&input.Password, "password", "", "password (min 8 characters)")
	cmd.Flags().StringVar(&input.Phone, "phone", "", "contact phone")
	return cmd
}

func sendRemindersCmd() *cobra.Command {
	var policyID string
	cmd := &cobra.Command{
		Use:   "send-reminders",
		Short: "Queue premium payment reminders",
		Long: `Queue a payment reminder for one policy (--policy) or for every active
policy. With the in-memory queue the worker runs alongside and the reminders
are delivered before exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var target *string
			if policyID != "" {
				target = &policyID
			}
			return withContainer(cmd.Context(), func(c *app.Container) error {
				var (
					queued int
					err    error
				)
				if c.Config.Notification.QueueDriver == "memory" {
					queued, err = remindWithWorker(cmd.Context(), c, target)
				} else {
					queued, err = c.Policies.SendPaymentReminders(cmd.Context(), operator, target)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d reminder(s) queued\n", queued)
				return nil
			}, blockOnFullQueue)
		},
	}
	cmd.Flags().StringVar(&policyID, "policy", "", "remind a single policy by id")
	return cmd
}

// blockOnFullQueue keeps a large reminder run from overflowing the in-memory
// buffer; the worker started by remindWithWorker makes room.
func blockOnFullQueue(cfg *config.Config) {
	cfg.Notification.BlockWhenFull = true
}

func remindWithWorker(ctx context.Context, c *app.Container, target *string) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	workerCtx, stopWorker := context.WithCancel(gctx)
	defer stopWorker()

	g.Go(func() error {
		if err := c.Worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	var queued int
	g.Go(func() error {
		defer stopWorker()
		var err error
		queued, err = c.Policies.SendPaymentReminders(gctx, operator, target)
		if err != nil {
			return err
		}
		waitEmpty(gctx, c.Queue)
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return queued, nil
}

// waitEmpty returns once the workers have picked up every buffered message.
func waitEmpty(ctx context.Context, queue notify.Queue) {
	buffered, ok := queue.(interface{ Len() int })
	if !ok {
		return
	}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for buffered.Len() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
