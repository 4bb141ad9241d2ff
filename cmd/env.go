package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadgrid/tracker-cli/internal/company"
	"github.com/leadgrid/tracker-cli/internal/config"
	"github.com/leadgrid/tracker-cli/internal/enrich"
	"github.com/leadgrid/tracker-cli/internal/enrich/source"
	"github.com/leadgrid/tracker-cli/internal/pipeline"
	"github.com/leadgrid/tracker-cli/internal/scorer"
	"github.com/leadgrid/tracker-cli/internal/session"
	"github.com/leadgrid/tracker-cli/pkg/companydb"
	"github.com/leadgrid/tracker-cli/pkg/emailfind"
	"github.com/leadgrid/tracker-cli/pkg/ipapi"
)

// trackerEnv holds the initialized stores and the pipeline needed by the
// serve/companies commands.
type trackerEnv struct {
	Companies company.Store
	Sessions  session.Store
	Pipeline  *pipeline.Pipeline
	Engine    *scorer.Engine
}

// Close releases resources held by the environment.
func (e *trackerEnv) Close() {
	if e.Sessions != nil {
		_ = e.Sessions.Close()
	}
	if e.Companies != nil {
		_ = e.Companies.Close()
	}
}

// initEnv wires stores, lookup clients, the enrichment aggregator, and
// the pipeline from config. Callers should defer env.Close().
func initEnv(ctx context.Context) (*trackerEnv, error) {
	companies, err := initCompanyStore(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := initSessionStore(cfg.Session)
	if err != nil {
		_ = companies.Close()
		return nil, err
	}

	engine, err := initEngine(cfg.Scoring)
	if err != nil {
		_ = sessions.Close()
		_ = companies.Close()
		return nil, err
	}

	adapterTimeout := time.Duration(cfg.Enrich.AdapterTimeoutSecs) * time.Second
	registry := source.NewRegistry(
		source.NewIPGeo(ipapi.NewClient(cfg.IPGeo.Key, ipapi.WithBaseURL(cfg.IPGeo.BaseURL)), adapterTimeout),
		source.NewCompanyDB(companydb.NewClient(cfg.CompanyDB.Key, companydb.WithBaseURL(cfg.CompanyDB.BaseURL)), adapterTimeout),
		source.NewEmailFind(emailfind.NewClient(cfg.EmailFind.Key, emailfind.WithBaseURL(cfg.EmailFind.BaseURL)), adapterTimeout),
		source.NewDirectory(),
	)

	aggregator := enrich.New(registry, sessions, companies, engine,
		adapterTimeout, cfg.Enrich.MinConfidence)

	return &trackerEnv{
		Companies: companies,
		Sessions:  sessions,
		Pipeline:  pipeline.New(sessions, companies, aggregator, engine),
		Engine:    engine,
	}, nil
}

func initCompanyStore(ctx context.Context) (company.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		s, err := company.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres store")
		}
		zap.L().Info("company store ready", zap.String("driver", "postgres"))
		return s, nil
	case "sqlite":
		s, err := company.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		zap.L().Info("company store ready",
			zap.String("driver", "sqlite"), zap.String("path", cfg.Store.SQLitePath))
		return s, nil
	case "memory":
		zap.L().Warn("company store is in-memory, profiles will not survive restarts")
		return company.NewMemoryStore(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSessionStore(sc config.SessionConfig) (session.Store, error) {
	ttl := time.Duration(sc.TTLHours) * time.Hour
	switch sc.Driver {
	case "redis":
		opts, err := redis.ParseURL(sc.RedisURL)
		if err != nil {
			return nil, eris.Wrap(err, "parse redis url")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, eris.Wrap(err, "ping redis")
		}
		zap.L().Info("session store ready", zap.String("driver", "redis"))
		return session.NewRedis(client, ttl), nil
	case "memory":
		return session.NewMemoryStore(), nil
	default:
		return nil, eris.Errorf("unsupported session driver: %s", sc.Driver)
	}
}

func initEngine(sc config.ScoringConfig) (*scorer.Engine, error) {
	weights := scorer.DefaultWeights()
	if sc.WeightsFile != "" {
		w, err := scorer.LoadWeights(sc.WeightsFile)
		if err != nil {
			return nil, eris.Wrap(err, "load scoring weights")
		}
		weights = w
		zap.L().Info("scoring weights loaded", zap.String("file", sc.WeightsFile))
	}
	if err := scorer.ValidateWeights(weights); err != nil {
		return nil, eris.Wrap(err, "validate scoring weights")
	}
	return scorer.New(weights), nil
}
