package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/config"
	"github.com/myscheme/schemeapi/controllers"
	"github.com/myscheme/schemeapi/logger"
	"github.com/myscheme/schemeapi/middleware"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/ratelimit"
	"github.com/myscheme/schemeapi/repository"
	"github.com/myscheme/schemeapi/services"
	"github.com/myscheme/schemeapi/utils"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	port string
	seed bool
}

func NewServeCommand(root *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "listen port, overrides PORT")
	cmd.Flags().BoolVar(&opts.seed, "seed", false, "load the bundled sample data before serving (memory driver only)")
	return cmd
}

func runServe(ctx context.Context, root *RootOptions, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := root.load(config.Overrides{"PORT": opts.port})
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("store close failed", "error", err)
		}
	}()

	blobs, err := utils.NewBlobStore(ctx, utils.StorageOptions{
		Driver:          cfg.Storage.Driver,
		GCSBucket:       cfg.Storage.GCSBucket,
		CredentialsFile: cfg.Storage.CredentialsFile,
		R2Bucket:        cfg.Storage.R2Bucket,
		R2AccessKey:     cfg.Storage.R2AccessKey,
		R2SecretKey:     cfg.Storage.R2SecretKey,
		R2Endpoint:      cfg.Storage.R2Endpoint,
		R2PublicDomain:  cfg.Storage.R2PublicDomain,
	})
	if err != nil {
		return fmt.Errorf("blob storage: %w", err)
	}
	if blobs != nil {
		defer blobs.Close()
	}

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
	defer limiter.Stop()

	h := buildHandlers(cfg, store, blobs, log)
	h.AuthLimiter = limiter

	if cfg.Admin.Email != "" {
		if _, err := h.Auth.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	if opts.seed {
		if cfg.Database.Driver != config.DriverMemory {
			return errors.New("--seed is only allowed with the memory driver; use the seed command for mongo")
		}
		data, err := loadSeedFile("")
		if err != nil {
			return err
		}
		if err := seedStore(ctx, store, data, log); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(cfg, h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr, "env", cfg.App.Environment, "db_driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildHandlers(cfg *config.Config, store repository.Store, blobs utils.BlobStore, log *logger.Logger) controllers.Handlers {
	tokens := utils.NewTokenIssuer(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	limits := query.Limits{Default: cfg.Query.DefaultLimit, Max: cfg.Query.MaxLimit}

	return controllers.Handlers{
		Schemes: services.NewSchemeService(store, services.SchemeServiceOptions{
			Limits:    limits,
			Blobs:     blobs,
			Validator: utils.NewImageValidator(cfg.Storage.MaxUploadMB),
		}, log.Logger),
		Categories: services.NewCategoryService(store, log.Logger),
		Favourites: services.NewFavouriteService(store, log.Logger),
		Stats:      services.NewStatsService(store),
		Auth:       services.NewAuthService(store, tokens, log.Logger),
		Users:      services.NewUserService(store, cfg.Query.MaxLimit),
		Feedback:   services.NewFeedbackService(store, cfg.Query.MaxLimit, log.Logger),
		Tokens:     tokens,
		Cookies: controllers.CookieSettings{
			Secure: cfg.Auth.CookieSecure || cfg.IsProduction(),
			Domain: cfg.Auth.CookieDomain,
		},
	}
}

func newRouter(cfg *config.Config, h controllers.Handlers, log *logger.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.RegisterValidation()

	allowedOrigins := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, origin := range cfg.Server.AllowedOrigins {
		allowedOrigins[origin] = true
	}
	log.Debug("cors origins", "origins", cfg.Server.AllowedOrigins)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	controllers.RegisterRoutes(r, h)
	return r
}
