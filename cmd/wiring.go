package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/ai/embedcache"
	"github.com/spigell/career-planner/internal/ai/gemini"
	"github.com/spigell/career-planner/internal/catalog"
	catalogmongo "github.com/spigell/career-planner/internal/catalog/mongo"
	"github.com/spigell/career-planner/internal/catalog/postgres"
	"github.com/spigell/career-planner/internal/gaps"
	"github.com/spigell/career-planner/internal/logger"
	"github.com/spigell/career-planner/internal/matching"
	"github.com/spigell/career-planner/internal/planner"
	"github.com/spigell/career-planner/internal/recommend"
	"github.com/spigell/career-planner/internal/secrets"
	"github.com/spigell/career-planner/internal/store"
	storemongo "github.com/spigell/career-planner/internal/store/mongo"
	"github.com/spigell/career-planner/internal/store/sqlite"
	"github.com/spigell/career-planner/internal/trajectory"
	"github.com/spigell/career-planner/internal/vectorindex"
)

// runtime holds what a command needs and releases it on close.
type runtime struct {
	config  *Config
	logger  *zap.Logger
	closers []func(context.Context) error

	reasoner *gemini.Client
	embedder ai.Embedder
}

func newRuntime() *runtime {
	logger, err := logger.New(logger.Options{
		JSON:    viper.GetBool("json"),
		Debug:   viper.GetBool("debug"),
		Service: app,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return &runtime{config: config, logger: logger}
}

func redacted(cfg *Config) Config {
	out := *cfg
	if out.AI.Gemini.APIKey != "" {
		out.AI.Gemini.APIKey = "***"
	}
	if out.Catalog.Postgres.DSN != "" {
		out.Catalog.Postgres.DSN = "***"
	}
	if out.Cache.RedisURL != "" {
		out.Cache.RedisURL = "***"
	}
	if out.Catalog.Mongo.URI != "" {
		out.Catalog.Mongo.URI = "***"
	}
	if out.Store.Mongo.URI != "" {
		out.Store.Mongo.URI = "***"
	}
	return out
}

func (r *runtime) close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			r.logger.Warn("closing resource", zap.Error(err))
		}
	}
	_ = r.logger.Sync()
}

func (r *runtime) models(ctx context.Context) (*gemini.Client, ai.Embedder, error) {
	if r.reasoner != nil {
		return r.reasoner, r.embedder, nil
	}

	cfg := r.config.AI
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:              apiKey,
		Model:               cfg.Gemini.Model,
		EmbeddingModel:      cfg.Gemini.EmbeddingModel,
		EmbeddingDimensions: cfg.Gemini.EmbeddingDimensions,
		RequestsPerSecond:   cfg.Gemini.RequestsPerSecond,
		MaxLogLength:        cfg.Gemini.MaxLogLength,
		ThinkingBudget:      cfg.Gemini.ThinkingBudget,
	}, r.logger)
	if err != nil {
		return nil, nil, err
	}

	r.logger.Debug("models ready",
		zap.String("model", client.Model()),
		zap.String("embedding_model", client.EmbeddingModel()),
	)

	r.reasoner = client
	r.embedder = embedcache.New(client, embedcache.Options{
		Namespace:  client.EmbeddingModel(),
		Redis:      r.redis(ctx),
		TTL:        r.config.Cache.TTL,
		MaxEntries: r.config.Cache.MaxEntries,
	}, r.logger)

	return r.reasoner, r.embedder, nil
}

// redis returns the shared cache client, or nil when it is not configured
// or not reachable.
func (r *runtime) redis(ctx context.Context) *redis.Client {
	url, err := secrets.Optional(secrets.Source{
		Name:  "redis url",
		File:  r.config.Cache.RedisURLFile,
		Env:   envPrefix + "_REDIS_URL",
		Value: r.config.Cache.RedisURL,
	})
	if err != nil {
		r.logger.Warn("loading redis url, shared embedding cache disabled", zap.Error(err))
		return nil
	}
	if url == "" {
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		r.logger.Warn("invalid redis url, shared embedding cache disabled", zap.Error(err))
		return nil
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		r.logger.Warn("redis is not reachable, shared embedding cache disabled", zap.Error(err))
		_ = rdb.Close()
		return nil
	}

	r.closers = append(r.closers, func(context.Context) error { return rdb.Close() })
	return rdb
}

func (r *runtime) indexes() (vacancies, courses *vectorindex.Index) {
	vacancies = vectorindex.Open(string(catalog.Vacancies), r.config.Index.VacanciesDir, r.logger)
	courses = vectorindex.Open(string(catalog.Courses), r.config.Index.CoursesDir, r.logger)
	return vacancies, courses
}

func (r *runtime) catalogs(ctx context.Context) (catalog.Repository[catalog.Vacancy], catalog.Repository[catalog.Course], error) {
	cfg := r.config.Catalog

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres":
		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			File:  cfg.Postgres.DSNFile,
			Env:   envPrefix + "_POSTGRES_DSN",
			Value: cfg.Postgres.DSN,
		})
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		r.closers = append(r.closers, func(context.Context) error { pool.Close(); return nil })
		return postgres.NewVacancies(pool), postgres.NewCourses(pool), nil

	case "mongo":
		client, err := storemongo.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		r.closers = append(r.closers, client.Disconnect)
		db := client.Database(cfg.Mongo.Database)
		return catalogmongo.NewVacancies(db), catalogmongo.NewCourses(db), nil

	case "file", "":
		vacancies, err := catalog.LoadFile[catalog.Vacancy](cfg.File.Vacancies)
		if err != nil {
			return nil, nil, err
		}
		courses, err := catalog.LoadFile[catalog.Course](cfg.File.Courses)
		if err != nil {
			return nil, nil, err
		}
		return vacancies, courses, nil

	default:
		return nil, nil, fmt.Errorf("unsupported catalog driver: %s", cfg.Driver)
	}
}

func (r *runtime) matcher(ctx context.Context) (*matching.Matcher, error) {
	reasoner, embedder, err := r.models(ctx)
	if err != nil {
		return nil, err
	}
	vacancies, courses, err := r.catalogs(ctx)
	if err != nil {
		return nil, err
	}
	vacancyIndex, courseIndex := r.indexes()

	return matching.New(matching.Deps{
		Reasoner:     reasoner,
		Embedder:     embedder,
		VacancyIndex: vacancyIndex,
		CourseIndex:  courseIndex,
		Vacancies:    vacancies,
		Courses:      courses,
	}, r.config.Limits, r.logger), nil
}

func (r *runtime) store(ctx context.Context) (store.Backend, error) {
	cfg := r.config.Store

	var (
		backend store.Backend
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite", "":
		backend, err = sqlite.Open(ctx, cfg.SQLite.Path)
	case "mongo":
		client, cerr := storemongo.Connect(ctx, cfg.Mongo.URI)
		if cerr != nil {
			return nil, cerr
		}
		backend = storemongo.New(client.Database(cfg.Mongo.Database))
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	r.closers = append(r.closers, backend.Close)
	return backend, nil
}

func (r *runtime) builder(ctx context.Context) (*trajectory.Builder, store.Backend, error) {
	m, err := r.matcher(ctx)
	if err != nil {
		return nil, nil, err
	}
	backend, err := r.store(ctx)
	if err != nil {
		return nil, nil, err
	}
	reasoner := r.reasoner
	lim := r.config.Limits

	return trajectory.New(trajectory.Deps{
		Sessions: backend,
		Store:    backend,
		Reasoner: reasoner,
		Matcher:  m,
		Gaps:     gaps.New(reasoner, lim, r.logger),
		Enricher: recommend.New(m, reasoner, lim, r.logger),
		Planner:  planner.New(reasoner, lim, r.logger),
	}, lim, r.logger), backend, nil
}
