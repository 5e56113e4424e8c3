package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/serenity-spa/spachat/internal/ai"
	"github.com/serenity-spa/spachat/internal/config"
	"github.com/serenity-spa/spachat/internal/db"
	"github.com/serenity-spa/spachat/internal/embedcache"
	"github.com/serenity-spa/spachat/internal/filestore"
	"github.com/serenity-spa/spachat/internal/handler"
	"github.com/serenity-spa/spachat/internal/intent"
	"github.com/serenity-spa/spachat/internal/job"
	"github.com/serenity-spa/spachat/internal/middleware"
	"github.com/serenity-spa/spachat/internal/repo"
	"github.com/serenity-spa/spachat/internal/schedule"
	"github.com/serenity-spa/spachat/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "spachat",
		Short: "spa assistant chat backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	var (
		seedFile  string
		seedEmbed bool
	)
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "split a markdown knowledge file into chunks and load them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedFile == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			ingest, err := buildIngest(cfg, conn)
			if err != nil {
				return err
			}
			n, err := ingest.SeedFile(context.Background(), seedFile, seedEmbed)
			if err != nil {
				return err
			}
			logutil.GetLogger(context.Background()).Info("seed done", zap.Int("chunks", n), zap.Bool("embedded", seedEmbed))
			return nil
		},
	}
	seedCmd.Flags().StringVar(&seedFile, "file", "", "markdown knowledge file")
	seedCmd.Flags().BoolVar(&seedEmbed, "embed", false, "embed chunks while seeding")

	var backfillBatch int
	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "embed knowledge rows that still have no vector",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			ingest, err := buildIngest(cfg, conn)
			if err != nil {
				return err
			}
			n, err := ingest.Backfill(context.Background(), backfillBatch)
			if err != nil {
				return err
			}
			logutil.GetLogger(context.Background()).Info("backfill done", zap.Int("embedded", n))
			return nil
		},
	}
	backfillCmd.Flags().IntVar(&backfillBatch, "batch", 64, "rows per embed batch")

	var reembedMinutes int
	reembedCmd := &cobra.Command{
		Use:   "reembed",
		Short: "re-embed knowledge rows updated within the recent window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			ingest, err := buildIngest(cfg, conn)
			if err != nil {
				return err
			}
			minutes := reembedMinutes
			if minutes <= 0 {
				minutes = cfg.Jobs.ReembedMinutes
			}
			n, err := ingest.ReembedSince(context.Background(), time.Duration(minutes)*time.Minute, cfg.Jobs.BackfillBatch)
			if err != nil {
				return err
			}
			logutil.GetLogger(context.Background()).Info("reembed done", zap.Int("embedded", n), zap.Int("window_minutes", minutes))
			return nil
		},
	}
	reembedCmd.Flags().IntVar(&reembedMinutes, "minutes", 0, "recency window in minutes (default from config)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	rootCmd.AddCommand(runCmd, seedCmd, backfillCmd, reembedCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sqlx.DB, error) {
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

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func buildEmbedder(cfg *config.Config, conn *sqlx.DB) (ai.IEmbedder, error) {
	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	if cfg.EmbedCache.UseDB {
		embedder = embedcache.WithDB(embedder, repo.NewEmbeddingCacheRepo(conn))
	}
	if cfg.EmbedCache.LRUSize > 0 {
		ttl := time.Duration(cfg.EmbedCache.LRUTTLMinutes) * time.Minute
		embedder = embedcache.WithLRU(embedder, cfg.EmbedCache.LRUSize, ttl)
	}
	return embedder, nil
}

func buildIngest(cfg *config.Config, conn *sqlx.DB) (*service.IngestService, error) {
	embedder, err := buildEmbedder(cfg, conn)
	if err != nil {
		return nil, err
	}
	return service.NewIngestService(repo.NewKnowledgeRepo(conn), embedder), nil
}

func runServer(cfg *config.Config, conn *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.Model),
	)

	knowledgeRepo := repo.NewKnowledgeRepo(conn)
	conversationRepo := repo.NewConversationRepo(conn)
	messageRepo := repo.NewMessageRepo(conn)
	serviceRepo := repo.NewServiceRepo(conn)
	businessRepo := repo.NewBusinessRepo(conn)

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	chatter := ai.NewChatter(provider, cfg.AI.Model, cfg.AI.Temperature)
	embedder, err := buildEmbedder(cfg, conn)
	if err != nil {
		return err
	}

	businessService := service.NewBusinessService(businessRepo)
	catalogService := service.NewCatalogService(serviceRepo)
	retriever := service.NewKnowledgeRetriever(embedder, knowledgeRepo)
	chatService := service.NewChatService(
		chatter,
		retriever,
		conversationRepo,
		messageRepo,
		businessService,
		cfg.RAG,
		cfg.Chat.SystemPrompt,
	)
	ingestService := service.NewIngestService(knowledgeRepo, embedder)
	bookingService := service.NewBookingService(cfg.Booking.RelayURL, cfg.Booking.Source, &http.Client{Timeout: 15 * time.Second})
	matcher := intent.NewMatcher(intent.DefaultRules())

	deps := handler.RouterDeps{
		Chat:    handler.NewChatHandler(chatService),
		Catalog: handler.NewCatalogHandler(catalogService, businessService),
		Intent:  handler.NewIntentHandler(matcher, catalogService),
		Booking: handler.NewBookingHandler(bookingService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Jobs.BackfillSpec != "" {
		if err := scheduler.AddJob(job.NewEmbeddingBackfillJob(ingestService, cfg.Jobs.BackfillBatch), cfg.Jobs.BackfillSpec); err != nil {
			return err
		}
	}
	if cfg.Jobs.ReembedSpec != "" {
		window := time.Duration(cfg.Jobs.ReembedMinutes) * time.Minute
		if err := scheduler.AddJob(job.NewReembedRecentJob(ingestService, window, cfg.Jobs.BackfillBatch), cfg.Jobs.ReembedSpec); err != nil {
			return err
		}
	}
	if cfg.Archive.Enable && cfg.Jobs.ArchiveSpec != "" {
		store, err := filestore.New(cfg.Archive)
		if err != nil {
			return fmt.Errorf("init archive store: %w", err)
		}
		archiveService := service.NewArchiveService(conversationRepo, messageRepo, store)
		if err := scheduler.AddJob(job.NewTranscriptArchiveJob(archiveService, 24*time.Hour), cfg.Jobs.ArchiveSpec); err != nil {
			return err
		}
	}
	if cfg.EmbedCache.UseDB && cfg.Jobs.CacheSweepSpec != "" {
		cleanup := job.NewEmbeddingCacheCleanupJob(repo.NewEmbeddingCacheRepo(conn), cfg.EmbedCache.MaxAgeDays)
		if err := scheduler.AddJob(cleanup, cfg.Jobs.CacheSweepSpec); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
