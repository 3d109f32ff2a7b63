package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/shaibs/reqsearch/internal/ai"
	"github.com/shaibs/reqsearch/internal/answer"
	"github.com/shaibs/reqsearch/internal/config"
	"github.com/shaibs/reqsearch/internal/db"
	"github.com/shaibs/reqsearch/internal/embedcache"
	"github.com/shaibs/reqsearch/internal/handler"
	"github.com/shaibs/reqsearch/internal/index"
	"github.com/shaibs/reqsearch/internal/job"
	"github.com/shaibs/reqsearch/internal/middleware"
	"github.com/shaibs/reqsearch/internal/query"
	"github.com/shaibs/reqsearch/internal/repo"
	"github.com/shaibs/reqsearch/internal/schedule"
	"github.com/shaibs/reqsearch/internal/search"
	"github.com/shaibs/reqsearch/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "reqsearch",
		Short: "semantic search and answers over business requests",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the reqsearch server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := setup(configPath)
			if err != nil {
				return err
			}
			defer database.Close()
			return runServer(cfg, database)
		},
	}

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the chunk table once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := setup(configPath)
			if err != nil {
				return err
			}
			defer database.Close()
			return runReindex(cfg, database)
		},
	}

	rootCmd.AddCommand(runCmd, reindexCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, database, nil
}

// buildAI assembles the generator and embedder failover groups from the
// primary provider plus any fallbacks. A missing generator provider is fine
// (answers degrade to retrieval-only); the embedder is mandatory.
func buildAI(cfg config.AIConfig) (ai.IGenerator, ai.IEmbedder, error) {
	var genEntries []ai.GeneratorEntry
	if cfg.Provider != "" {
		p, err := ai.NewProvider(cfg.Provider, cfg.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai provider: %w", err)
		}
		genEntries = append(genEntries, ai.GeneratorEntry{Name: cfg.Provider, Generator: ai.NewGenerator(p, cfg.Model)})
	}
	ep, err := ai.NewEmbedProviderByName(cfg.EmbedProvider, cfg.EmbedData)
	if err != nil {
		return nil, nil, fmt.Errorf("init embed provider: %w", err)
	}
	embEntries := []ai.EmbedderEntry{{Name: cfg.EmbedProvider, Embedder: ai.NewEmbedder(ep, cfg.EmbedModel)}}

	for _, fb := range cfg.Fallbacks {
		if fb.Model != "" {
			p, err := ai.NewProvider(fb.Provider, fb.Data)
			if err != nil {
				return nil, nil, fmt.Errorf("init fallback provider %s: %w", fb.Provider, err)
			}
			genEntries = append(genEntries, ai.GeneratorEntry{Name: fb.Provider, Generator: ai.NewGenerator(p, fb.Model)})
		}
		if fb.EmbedModel != "" {
			// cached vectors are keyed by model name and compared by cosine
			// distance; a different fallback model would corrupt both
			if fb.EmbedModel != cfg.EmbedModel {
				return nil, nil, fmt.Errorf("fallback %s embed model %q differs from primary %q", fb.Provider, fb.EmbedModel, cfg.EmbedModel)
			}
			fep, err := ai.NewEmbedProviderByName(fb.Provider, fb.Data)
			if err != nil {
				return nil, nil, fmt.Errorf("init fallback embed provider %s: %w", fb.Provider, err)
			}
			embEntries = append(embEntries, ai.EmbedderEntry{Name: fb.Provider, Embedder: ai.NewEmbedder(fep, fb.EmbedModel)})
		}
	}
	return ai.NewGroupGenerator(genEntries), ai.NewGroupEmbedder(embEntries), nil
}

func buildEmbedder(cfg *config.Config, embedGroup ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	cached := embedcache.WrapDBCacheToEmbedder(embedGroup, cacheRepo)
	return embedcache.WrapLruCacheToEmbedder(cached, cfg.Index.CacheSize, time.Duration(cfg.Index.CacheTTLHours)*time.Hour)
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("embed_provider", cfg.AI.EmbedProvider),
		zap.String("embed_model", cfg.AI.EmbedModel),
		zap.String("gen_provider", cfg.AI.Provider),
	)

	requestRepo := repo.NewRequestRepo(database)
	chunkRepo := repo.NewChunkRepo(database)
	cacheRepo := repo.NewEmbeddingCacheRepo(database)

	genGroup, embedGroup, err := buildAI(cfg.AI)
	if err != nil {
		return err
	}
	embedder := buildEmbedder(cfg, embedGroup, cacheRepo)
	manager := ai.NewManager(genGroup, embedder, ai.ManagerConfig{
		Timeout:       cfg.AI.Timeout,
		MaxTokens:     cfg.AI.MaxTokens,
		MaxInputChars: cfg.AI.MaxInputChars,
	})
	gate := ai.NewReadyGate(genGroup)

	profile := index.DefaultProfile()
	parser := query.NewParser(query.Params{DefaultRecentDays: cfg.Search.DefaultRecentDays})
	ranker := search.NewRanker(embedder, chunkRepo, requestRepo, profile.Labels(), search.Policy{
		DefaultTopK:       cfg.Search.DefaultTopK,
		MaxTopK:           cfg.Search.MaxTopK,
		PersonThreshold:   cfg.Search.PersonThreshold,
		GeneralThreshold:  cfg.Search.GeneralThreshold,
		CombinedThreshold: cfg.Search.CombinedThreshold,
		SimilarThreshold:  cfg.Search.SimilarThreshold,
		LabelBoost:        cfg.Search.LabelBoost,
		MentionBoost:      cfg.Search.MentionBoost,
		ScanLimit:         cfg.Search.ScanLimit,
		UrgentWindowDays:  cfg.Search.UrgentWindowDays,
	})
	searchService := service.NewSearchService(parser, ranker, requestRepo)
	answerService := service.NewAnswerService(searchService, answer.NewComposer(time.Now), manager, gate, service.AnswerOptions{
		CacheSize:     cfg.Answer.CacheSize,
		CacheTTL:      time.Duration(cfg.Answer.CacheTTLMinutes) * time.Minute,
		SummarySample: cfg.Search.SummarySample,
	})
	indexer := index.NewIndexer(requestRepo, chunkRepo, embedder, profile, index.Options{
		ChunkTokens: cfg.Index.ChunkTokens,
		Concurrency: cfg.Index.EmbedConcurrency,
	})

	deps := handler.RouterDeps{
		Search:          handler.NewSearchHandler(searchService),
		Answers:         handler.NewAnswerHandler(answerService),
		Requests:        handler.NewRequestHandler(searchService),
		Admin:           handler.NewAdminHandler(indexer),
		RateLimitWindow: time.Duration(cfg.Answer.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.Health(),
			middleware.CORS(cfg.CORSAllowOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewReindexJob(requestRepo, chunkRepo, indexer), cfg.Jobs.ReindexSpec); err != nil {
		return fmt.Errorf("schedule reindex: %w", err)
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Index.CacheKeepDays), cfg.Jobs.CacheCleanupSpec); err != nil {
		return fmt.Errorf("schedule cache cleanup: %w", err)
	}
	scheduler.Start(ctx)

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	return nil
}

// runReindex is the one-shot variant of the nightly job: full regeneration,
// unconditionally, then exit.
func runReindex(cfg *config.Config, database *sql.DB) error {
	requestRepo := repo.NewRequestRepo(database)
	chunkRepo := repo.NewChunkRepo(database)
	cacheRepo := repo.NewEmbeddingCacheRepo(database)

	_, embedGroup, err := buildAI(cfg.AI)
	if err != nil {
		return err
	}
	embedder := buildEmbedder(cfg, embedGroup, cacheRepo)
	indexer := index.NewIndexer(requestRepo, chunkRepo, embedder, index.DefaultProfile(), index.Options{
		ChunkTokens: cfg.Index.ChunkTokens,
		Concurrency: cfg.Index.EmbedConcurrency,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := indexer.Reindex(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("reindex finished",
		zap.Int64("requests", stats.Requests),
		zap.Int64("chunks", stats.Chunks),
		zap.Int64("skipped", stats.Skipped),
		zap.Duration("took", stats.Took),
	)
	return nil
}
