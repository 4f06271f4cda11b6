// Package main implements studynest-admin, the operator CLI for tasks the API does not expose.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anonto42/studynest/backend/internal/auth"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/notify"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/anonto42/studynest/backend/pkg/config"
	"github.com/anonto42/studynest/backend/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	timeout time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "studynest-admin",
	Short:        "Operator commands for the StudyNest API",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "timeout for the whole command")

	createUserCmd.Flags().String("name", "", "display name")
	createUserCmd.Flags().String("email", "", "login email")
	createUserCmd.Flags().String("role", string(models.RoleAdmin), "student, teacher or admin")
	createUserCmd.Flags().String("password", "", "password (prompted when empty)")
	_ = createUserCmd.MarkFlagRequired("name")
	_ = createUserCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(createUserCmd, ensureIndexesCmd, drainOutboxCmd)
}

// env is what every command needs: configuration, a logger and the database.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *config.DB
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	db, err := config.InitDB(cfg, zlog)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: zlog, db: db}, nil
}

func (e *env) close() {
	e.db.CloseDB()
	_ = e.logger.Sync()
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an account, including admin accounts",
	Long: `Create an account directly in the database. This is the only way to create
admin accounts. The password is prompted for when --password is omitted.

Examples:
  studynest-admin create-user --name "Ada" --email ada@example.com --role admin`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		roleFlag, _ := cmd.Flags().GetString("role")
		password, _ := cmd.Flags().GetString("password")

		role, err := models.ParseRole(strings.ToLower(roleFlag))
		if err != nil {
			return err
		}
		if password == "" {
			password, err = promptPassword(cmd)
			if err != nil {
				return err
			}
		}
		if len(password) < 6 {
			return fmt.Errorf("password must be at least 6 characters")
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		hashed, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		user := &models.User{
			Name:     strings.TrimSpace(name),
			Email:    email,
			Password: hashed,
			Role:     role,
		}
		if err := repositories.NewMongoUserRepository(e.db.Database).CreateUser(ctx, user); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID.Hex())
		return nil
	},
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password: ")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create or update the MongoDB indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		if err := repositories.EnsureIndexes(ctx, e.db.Database); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "indexes are up to date")
		return nil
	},
}

var drainOutboxCmd = &cobra.Command{
	Use:   "drain-outbox",
	Short: "Deliver pending notification events now",
	Long: `Run the outbox worker once in the foreground until no claimable event is
left. Useful after an outage, or when the API runs with NOTIFY_MODE=direct
and old events remain.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		users := repositories.NewMongoUserRepository(e.db.Database)
		notifications := repositories.NewMongoNotificationRepository(e.db.Database)
		outbox := repositories.NewMongoOutboxRepository(e.db.Database)
		fanout := notify.NewService(users, notifications, e.logger)
		worker := notify.NewWorker(outbox, fanout, e.cfg.OutboxPollInterval, e.cfg.OutboxLease, e.logger)

		total, err := worker.DrainOnce(ctx)
		if err != nil {
			return fmt.Errorf("delivered %d events before failing: %w", total, err)
		}

		pending, err := outbox.CountPending(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "delivered %d events, %d still pending\n", total, pending)
		return nil
	},
}
