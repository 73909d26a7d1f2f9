// Package app wires configuration into the running pipeline. The server
// and the CLI share it so both predict identically.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/OldStager01/genomerx/api/handlers"
	"github.com/OldStager01/genomerx/internal/events"
	"github.com/OldStager01/genomerx/internal/kmer"
	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/internal/metrics"
	"github.com/OldStager01/genomerx/internal/predictor"
	"github.com/OldStager01/genomerx/internal/registry"
	"github.com/OldStager01/genomerx/internal/resilience"
	"github.com/OldStager01/genomerx/pkg/config"
	"github.com/OldStager01/genomerx/pkg/database"
)

const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Store is an artifact store plus its health probe and cleanup.
type Store struct {
	registry.Store
	Check handlers.Check
	close func() error
}

func (s *Store) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

func OpenStore(cfg *config.Config, m *metrics.Metrics) (*Store, error) {
	switch cfg.Models.Store {
	case StoreRedis:
		rs, err := registry.NewRedisStore(registry.RedisStoreConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.KeyPrefix,
			Breaker: resilience.CircuitBreakerConfig{
				MaxFailures: cfg.Redis.CircuitBreaker.MaxFailures,
				Cooldown:    cfg.Redis.CircuitBreaker.Timeout,
				OnStateChange: func(name string, from, to resilience.State) {
					logger.WithFields(map[string]interface{}{
						"breaker": name,
						"from":    from.String(),
						"to":      to.String(),
					}).Warn("circuit breaker state changed")
					m.SetCircuitBreakerState(name, int(to))
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("open redis model store: %w", err)
		}
		return &Store{
			Store: rs,
			Check: handlers.Check{Name: "model_store", Fn: rs.Ping},
			close: rs.Close,
		}, nil

	case StoreFile, "":
		fs := registry.NewFileStore(cfg.Models.Dir, cfg.Models.Extension)
		return &Store{
			Store: fs,
			Check: handlers.Check{Name: "model_store", Fn: func(context.Context) error {
				info, err := os.Stat(fs.Dir())
				if err != nil {
					return err
				}
				if !info.IsDir() {
					return fmt.Errorf("%s is not a directory", fs.Dir())
				}
				return nil
			}},
		}, nil
	}
	return nil, fmt.Errorf("unknown model store %q", cfg.Models.Store)
}

// Pipeline is the registry and aggregator built from one configuration.
type Pipeline struct {
	Registry   *registry.Registry
	Aggregator *predictor.Aggregator
}

// NewPipeline reports every model load to metrics and the event bus.
func NewPipeline(cfg *config.Config, store registry.Store, m *metrics.Metrics, pub *events.Publisher) (*Pipeline, error) {
	pc := cfg.ToPredictorConfig()

	reg := registry.New(store, registry.Options{
		FeatureSize:      kmer.Size(pc.K),
		SusceptibleLabel: cfg.Models.SusceptibleLabel,
		OnLoad: func(ev registry.LoadEvent) {
			entry := logger.WithAntibiotic(ev.Antibiotic).WithField("key", ev.Key)
			if ev.Err != nil {
				m.IncModelLoad("error")
				entry.WithError(ev.Err).Error("model load failed")
			} else {
				m.IncModelLoad("success")
				entry.WithField("capability", ev.Capability).Infof("model loaded in %s", ev.Duration)
			}
			pub.ModelLoad(ev)
		},
	})

	agg, err := predictor.New(pc, reg, predictor.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("build predictor: %w", err)
	}
	return &Pipeline{Registry: reg, Aggregator: agg}, nil
}

// OpenDatabase connects and, for sqlite or when migrate is set, applies
// the embedded migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config, migrate bool) (*database.DB, error) {
	dbCfg := cfg.Database.ToDBConfig()
	if dbCfg.Driver == database.DriverSQLite || dbCfg.Driver == "" {
		migrate = true
	}

	db, err := database.New(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if migrate {
		if err := database.NewMigrator(db).Run(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return db, nil
}
