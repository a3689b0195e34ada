// @title Medication Adherence API
// @version 1.0
// @description Horario de tomas, registro diario, calendario mensual y explicaciones de medicaciones.
// @BasePath /
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"medication-adherence/internal/adapters/auth/jwtverifier"
	"medication-adherence/internal/adapters/storage/mongostore"
	pg "medication-adherence/internal/adapters/storage/postgres"
	"medication-adherence/internal/config"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/router"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medication-adherence",
		Short: "Medication adherence API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd.Context())
		},
	})

	var (
		tokenUser  string
		tokenEmail string
		tokenTTL   time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET (development)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return issueToken(cmd.OutOrStdout(), cfg.JWTSecret, tokenUser, tokenEmail, tokenTTL)
		},
	}
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "User ID (required)")
	tokenCmd.Flags().StringVarP(&tokenEmail, "email", "e", "", "Email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
}

func issueToken(w io.Writer, secret, userID, email string, ttl time.Duration) error {
	if strings.TrimSpace(secret) == "" {
		return errors.New("JWT_SECRET is required to issue tokens")
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("--user is required")
	}
	if ttl <= 0 {
		return errors.New("--ttl must be positive")
	}
	tok, err := jwtverifier.Issue(secret, strings.TrimSpace(userID), strings.TrimSpace(email), ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

func migrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DBDSN == "" {
		return errors.New("DB_DSN is required to migrate")
	}
	log := newLogger(cfg)

	db, err := pg.Open(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := pg.RunMigrations(ctx, db); err != nil {
		return err
	}
	log.Info("migrations applied", nil)
	return nil
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	var db *sql.DB
	if cfg.DBDSN != "" {
		db, err = pg.Open(cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.MigrateOnStart {
			if err := pg.RunMigrations(ctx, db); err != nil {
				return err
			}
			log.Info("migrations applied", nil)
		}
	} else {
		log.Warn("DB_DSN not set; using in-memory storage", nil)
	}

	var mdb *mongo.Database
	if cfg.MongoURI != "" {
		mdb, err = mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
	}

	app, err := router.New(router.Options{
		Config: cfg,
		DB:     db,
		Mongo:  mdb,
		Logger: log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     app.Handler,
		ReadTimeout: 5 * time.Second,
		// Sin WriteTimeout: /doses/today/stream es una conexión larga.
		// Los streams se cortan cuando llega la señal.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	app.Explanations.Wait()
	return err
}
