// Package app wires application components and startup helpers.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/ai"
	httpserver "github.com/fairyhunter13/ats-cv-scorer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/storage/localfs"
	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/textextractor"
	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/ats-cv-scorer/internal/config"
	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/service/lock"
	"github.com/fairyhunter13/ats-cv-scorer/internal/service/ratelimiter"
	"github.com/fairyhunter13/ats-cv-scorer/internal/usecase"
)

// App holds the HTTP handler and the resources it depends on.
type App struct {
	Handler http.Handler
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New connects to every configured backend and assembles the use cases.
// Redis, Kafka, Tika and the remote AI provider are optional.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{}
	fail := func(err error) (*App, error) {
		a.Close()
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fail(fmt.Errorf("db connect: %w", err))
	}
	a.closers = append(a.closers, pool.Close)

	var (
		rdb    redis.UniversalClient
		locker domain.Locker = lock.NewLocalLocker()
		quota  domain.RateLimiter
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("redis url: %w", err))
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, func() { _ = client.Close() })
		rdb = client
		locker = lock.NewRedisLocker(client, cfg.AnalysisLockTTL)
		if cfg.AIRateLimitPerMin > 0 {
			quota = ratelimiter.NewRedisLuaLimiter(client, ratelimiter.NewBucketConfigFromPerMinute(cfg.AIRateLimitPerMin))
		}
	} else {
		slog.Warn("REDIS_URL not set, using in-process analysis locks")
	}

	prompts, err := config.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return fail(err)
	}
	chat, err := ai.NewChatClient(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("ai client: %w", err))
	}
	if chat == nil {
		slog.Warn("no AI credential configured, analyses use the local fallback", slog.String("provider", cfg.AIProvider))
	}
	evaluator := usecase.NewEvaluator(chat, prompts, cfg.AIModel(), cfg.AITimeout)

	extractorOpts := []textextractor.Option{textextractor.WithEmptyHook(observability.ObserveEmptyExtraction)}
	var tikaClient *tika.Client
	if cfg.TikaURL != "" {
		tikaClient = tika.New(cfg.TikaURL, 30*time.Second)
		extractorOpts = append(extractorOpts, textextractor.WithRemote(tikaClient))
	}

	candidates := postgres.NewCandidateRepo(pool)
	metrics := observability.Recorder{}
	analysisOpts := []usecase.AnalysisOption{
		usecase.WithTracer(observability.NewAnalysisTracer()),
		usecase.WithMetrics(metrics),
	}
	if quota != nil {
		analysisOpts = append(analysisOpts, usecase.WithQuota(quota))
	}
	var events domain.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			return fail(fmt.Errorf("event producer: %w", err))
		}
		a.closers = append(a.closers, producer.Close)
		events = producer
		analysisOpts = append(analysisOpts, usecase.WithEvents(producer))
	}

	analysis := usecase.NewAnalysisService(
		candidates,
		postgres.NewAnalysisRepo(pool),
		localfs.New(cfg.MediaRoot),
		textextractor.New(extractorOpts...),
		evaluator,
		locker,
		analysisOpts...,
	)
	criteria := usecase.NewCriteriaService(candidates, postgres.NewCriteriaRepo(pool), locker, events, metrics)

	var tikaPinger Pinger
	if tikaClient != nil {
		tikaPinger = tikaClient
	}
	srv := httpserver.NewServer(cfg,
		analysis,
		criteria,
		usecase.NewCandidateService(candidates),
		usecase.NewUsageService(postgres.NewUsageRepo(pool)),
		BuildReadinessChecks(pool, rdb, tikaPinger)...,
	)
	a.Handler = BuildRouter(cfg, srv)
	return a, nil
}
