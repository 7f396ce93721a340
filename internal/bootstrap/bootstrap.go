package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/biblioteka/backend/internal/app/auth"
	appControllers "github.com/biblioteka/backend/internal/app/controllers"
	"github.com/biblioteka/backend/internal/app/jobs"
	appMigrations "github.com/biblioteka/backend/internal/app/migrations"
	appRepos "github.com/biblioteka/backend/internal/app/repositories"
	appRoutes "github.com/biblioteka/backend/internal/app/routes"
	appServices "github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/config"
	"github.com/biblioteka/backend/internal/db"
	appMiddleware "github.com/biblioteka/backend/internal/middleware"
	pkgAuth "github.com/biblioteka/backend/internal/pkg/auth"
	"github.com/biblioteka/backend/internal/pkg/email"
	"github.com/biblioteka/backend/internal/pkg/filestorage"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/biblioteka/backend/internal/pkg/logger"
	"github.com/biblioteka/backend/internal/pkg/payment"
	"github.com/biblioteka/backend/internal/pkg/websocket"
	"github.com/biblioteka/backend/internal/seed"
	"github.com/biblioteka/backend/migrations"
)

// DefaultConfigPath is where the API and CLI look for configuration
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	Services       *appServices.Services
	FileStorage    *filestorage.LocalStorage
	JWTService     *pkgAuth.JWTService
	AuthzService   *appAuth.AuthorizationService
	AuthMiddleware *appMiddleware.AuthMiddleware
	Hub            *websocket.Hub
	Controllers    appRoutes.Controllers
	Scheduler      *jobs.Scheduler
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
// forcePretty switches to console output regardless of the configured format.
func LoadConfigAndSetupLogger(configPath string, forcePretty bool) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := forcePretty || strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and
// creates the default data.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if _, err := RunMigrations(ctx, cfg, database, lgr); err != nil {
		database.Close()
		return nil, err
	}

	repos := appRepos.NewRepositories(database)
	if _, err := seed.CreateDefaultData(ctx, repos, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return database, nil
}

// RunMigrations applies pending schema files and returns how many ran
func RunMigrations(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (int, error) {
	lgr.Info().Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(database, migrationSource(cfg, lgr)).Up(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return applied, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return applied, nil
}

// migrationSource prefers an on-disk directory so schema files can be
// edited without a rebuild, falling back to the embedded copy.
func migrationSource(cfg *config.Config, lgr zerolog.Logger) fs.FS {
	dir := cfg.Database.MigrationsDir
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			lgr.Debug().Str("path", dir).Msg("Using migrations directory")
			return os.DirFS(dir)
		}
	}
	lgr.Debug().Msg("Using embedded migrations")
	return migrations.FS
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database)

	fileStorageBaseURL := strings.TrimRight(cfg.Server.BaseURL, "/") + "/uploads"
	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, fileStorageBaseURL)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	emailService := email.NewEmailService(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
	}, logger.Component("email"))

	deps.Hub = websocket.NewHub(lgr)

	serviceDeps := appServices.Deps{
		Repos:    deps.Repos,
		Storage:  deps.FileStorage,
		Email:    emailService,
		Notifier: deps.Hub,
		Circulation: appServices.CirculationConfig{
			LoanPeriod:       helpers.ParseDuration(cfg.Circulation.LoanPeriod, 14*24*time.Hour),
			MaxRenewals:      cfg.Circulation.MaxRenewals,
			PickupWindow:     helpers.ParseDuration(cfg.Circulation.PickupWindow, 72*time.Hour),
			NotifyQueueEmail: cfg.Circulation.NotifyQueueEmail,
		},
	}
	if cfg.Payments.Enabled {
		serviceDeps.Payments = payment.NewClient(payment.Config{
			BaseURL:     cfg.Payments.BaseURL,
			ShopID:      cfg.Payments.ShopID,
			SecretKey:   cfg.Payments.SecretKey,
			Timeout:     helpers.ParseDuration(cfg.Payments.Timeout, 10*time.Second),
			MaxAttempts: cfg.Payments.MaxAttempts,
		}, logger.Component("yookassa"))
	} else {
		lgr.Info().Msg("Payment gateway disabled; fine reconciliation is off")
	}
	deps.Services = appServices.NewServices(serviceDeps)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(deps.Repos.LibrarianAssignments)
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.AuthzService)

	s := deps.Services
	deps.Controllers = appRoutes.Controllers{
		Health:      appControllers.NewHealthController(database),
		Users:       appControllers.NewUserController(s.Users),
		Branches:    appControllers.NewBranchController(s.Branches),
		Catalog:     appControllers.NewCatalogController(s.Catalog),
		Circulation: appControllers.NewCirculationController(s.Circulation),
		Fines:       appControllers.NewFineController(s.Fines),
		Reviews:     appControllers.NewReviewController(s.Reviews),
		Queue:       appControllers.NewQueueController(s.Queue),
		Websocket:   websocket.NewHandler(deps.Hub, lgr),
	}

	deps.Scheduler = BuildScheduler(cfg, s, lgr)

	return deps, nil
}

// BuildScheduler registers the periodic maintenance jobs
func BuildScheduler(cfg *config.Config, s *appServices.Services, lgr zerolog.Logger) *jobs.Scheduler {
	scheduler := jobs.NewScheduler(lgr)
	jobLogger := logger.Component("jobs")

	sweepEvery := helpers.ParseDuration(cfg.Circulation.SweepInterval, time.Hour)
	scheduler.Add("overdue-sweep", sweepEvery, jobs.OverdueSweeper(s.Circulation, s.Branches, jobLogger))

	if cfg.Payments.Enabled {
		pollEvery := helpers.ParseDuration(cfg.Payments.PollInterval, 5*time.Minute)
		scheduler.Add("fine-reconcile", pollEvery, jobs.FinePoller(s.Fines, jobLogger))
	}
	return scheduler
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(appMiddleware.RequestID(), appMiddleware.RequestLogger(), gin.Recovery())

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	return router, nil
}
