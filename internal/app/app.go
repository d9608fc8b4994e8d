// Package app wires configuration into repositories and services for the
// server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"alcyxob/strength-tracker/internal/config"
	"alcyxob/strength-tracker/internal/metrics"
	"alcyxob/strength-tracker/internal/repository"
	"alcyxob/strength-tracker/internal/repository/memory"
	"alcyxob/strength-tracker/internal/repository/mongo"
	"alcyxob/strength-tracker/internal/service"
	"alcyxob/strength-tracker/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// App holds every long-lived component.
type App struct {
	Config   config.Config
	Metrics  *metrics.Manager
	Registry *prometheus.Registry

	WorkoutRepo     repository.WorkoutRepository
	MeasurementRepo repository.MeasurementRepository

	Workouts     service.WorkoutService
	Measurements service.MeasurementService
	Transfer     service.TransferService
	Editors      *service.EditorRegistry
	Auth         service.AuthService

	closeStore func()
}

// New opens the configured store and builds the services. Nothing is
// started; the server calls Start, the CLI reads on demand.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Sync.Location()
	if err != nil {
		return nil, err
	}

	reg := metrics.SetupPrometheus()
	m := metrics.NewManager("tracker", "server", reg)
	a := &App{Config: cfg, Metrics: m, Registry: reg}

	// --- Store ---
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	// --- Archive storage (optional) ---
	var archive storage.ArchiveStorage
	if cfg.S3.Enabled() {
		archive, err = storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init archive storage: %w", err)
		}
	} else {
		log.Info("s3 bucket not configured, export archiving disabled")
	}

	// --- Services ---
	svcCfg := service.WorkoutServiceConfig{
		MaxWriteAttempts: cfg.Sync.MaxWriteAttempts,
		Location:         loc,
		Metrics:          m,
	}
	a.Workouts = service.NewWorkoutService(a.WorkoutRepo, svcCfg)
	a.Measurements = service.NewMeasurementService(a.MeasurementRepo, svcCfg)
	a.Transfer = service.NewTransferService(a.WorkoutRepo, a.MeasurementRepo, archive, cfg.S3.ExportPrefix, m)
	a.Editors = service.NewEditorRegistry(a.Workouts, service.EditorConfig{
		DebounceDelay:   cfg.Sync.DebounceDelay,
		CompletionGrace: cfg.Sync.CompletionGrace,
		Metrics:         m,
	})

	if cfg.Auth.PasswordHash == "" {
		log.Warn("auth.password_hash is empty, every login will be refused")
	}
	provider := service.NewPasswordIdentityProvider(map[string]string{cfg.Auth.AllowedEmail: cfg.Auth.PasswordHash})
	a.Auth = service.NewAuthService(provider, cfg.Auth.AllowedEmail, cfg.JWT.Secret, cfg.JWT.Expiration)

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	db := a.Config.Database
	switch db.Driver {
	case config.DriverMemory:
		log.Warn("using the in-memory store, data is lost on exit")
		a.WorkoutRepo = memory.NewWorkoutRepository(db.UniqueDaySessions)
		a.MeasurementRepo = memory.NewMeasurementRepository()
		a.closeStore = func() {}
		return nil

	case config.DriverMongo:
		client, err := mongo.ConnectDB(db.URI)
		if err != nil {
			return err
		}
		database := client.Database(db.Name)
		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		err = mongo.EnsureIndexes(indexCtx, database, db.UniqueDaySessions)
		cancel()
		if err != nil {
			// without the index the store would silently accept duplicates
			if db.UniqueDaySessions {
				if dErr := mongo.DisconnectDB(client); dErr != nil {
					log.WithError(dErr).Error("failed to disconnect MongoDB")
				}
				return fmt.Errorf("unique day sessions requested: %w", err)
			}
			log.WithError(err).Warn("continuing without some indexes")
		}

		a.WorkoutRepo = mongo.NewMongoWorkoutRepository(database, db.PollInterval)
		a.MeasurementRepo = mongo.NewMongoMeasurementRepository(database, db.PollInterval)
		a.closeStore = func() {
			if err := mongo.DisconnectDB(client); err != nil {
				log.WithError(err).Error("failed to disconnect MongoDB")
			}
		}
		log.WithFields(log.Fields{"database": db.Name}).Info("connected to MongoDB")
		return nil

	default:
		return fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

// Start opens the live mirrors.
func (a *App) Start() {
	a.Workouts.Start()
	a.Measurements.Start()
}

// Close drops open editors, stops the mirrors and disconnects the store.
func (a *App) Close() {
	if a.Editors != nil {
		a.Editors.CloseAll()
	}
	if a.Workouts != nil {
		a.Workouts.Close()
	}
	if a.Measurements != nil {
		a.Measurements.Close()
	}
	if a.closeStore != nil {
		a.closeStore()
		a.closeStore = nil
	}
}
