package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"fieldops-api/internal/auth"
	"fieldops-api/internal/config"
	"fieldops-api/internal/database"
	"fieldops-api/internal/identity"
	"fieldops-api/internal/routes"
	"fieldops-api/internal/tasks"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

// identityWiring is what the identity backend contributes: the directory for
// enrichment and staff listing, the token verifier and, for the local backend
// only, the account store behind /api/login. Verifier and directory always
// share one actor id space.
type identityWiring struct {
	Directory identity.Directory
	Lister    identity.Lister
	Verifier  auth.TokenVerifier
	Accounts  *auth.Accounts
}

type firebaseOpener func(ctx context.Context, credentialsPath string) (*identity.FirebaseDirectory, error)

func wireIdentity(ctx context.Context, cfg *config.Config, db *gorm.DB, openFirebase firebaseOpener) (*identityWiring, error) {
	if cfg.IdentityBackend == config.IdentityBackendFirebase {
		dir, err := openFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, err
		}
		return &identityWiring{Directory: dir, Lister: dir, Verifier: dir}, nil
	}
	dir := identity.NewUserDirectory(db)
	return &identityWiring{
		Directory: dir,
		Lister:    dir,
		Verifier:  auth.JWTVerifier{},
		Accounts:  auth.NewAccounts(db, nil),
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	gin.SetMode(cfg.GinMode)
	auth.Configure(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)

	db, err := database.Open(cfg.DBPath, logger.Warn)
	if err != nil {
		return err
	}

	ident, err := wireIdentity(ctx, cfg, db, identity.NewFirebaseDirectory)
	if err != nil {
		_ = closeDB(db)
		return fmt.Errorf("failed to set up identity backend: %w", err)
	}

	svc := tasks.NewService(db, ident.Directory,
		tasks.WithLocation(cfg.StatsLocation),
		tasks.WithLogger(log),
		tasks.WithLookupConcurrency(cfg.LookupConcurrency),
	)

	router := routes.SetupRoutes(routes.Deps{
		Tasks:    svc,
		Accounts: ident.Accounts,
		Verifier: ident.Verifier,
		Users:    ident.Lister,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			"addr", srv.Addr,
			"identity_backend", cfg.IdentityBackend,
			"stats_timezone", cfg.StatsLocation.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// The database closes only after in-flight requests drain.
			"http-server": func(ctx context.Context) error {
				log.Info("graceful shutdown initiated")
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				return closeDB(db)
			},
		},
	)

	return awaitExit(listenErr, wait, func() error { return closeDB(db) }, log)
}

// awaitExit blocks until either the listener fails or a signal-driven
// shutdown completes. A listener failure never accepted a request, so only
// the database needs closing.
func awaitExit(listenErr <-chan error, wait <-chan int, cleanup func() error, log *slog.Logger) error {
	select {
	case err := <-listenErr:
		log.Error("server failed", "error", err)
		if cerr := cleanup(); cerr != nil {
			log.Error("cleanup failed", "error", cerr)
		}
		return fmt.Errorf("server failed: %w", err)
	case exitCode := <-wait:
		log.Info("server exited", "code", exitCode)
		if exitCode != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", exitCode)
		}
		return nil
	}
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
