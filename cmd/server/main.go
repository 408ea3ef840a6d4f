package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmassist-backend/cache"
	"pharmassist-backend/config"
	"pharmassist-backend/handlers"
	"pharmassist-backend/index"
	"pharmassist-backend/llm"
	"pharmassist-backend/logging"
	"pharmassist-backend/metrics"
	"pharmassist-backend/middleware"
	"pharmassist-backend/repository"
	"pharmassist-backend/scraper"
	"pharmassist-backend/service"
	"pharmassist-backend/storage"
	"pharmassist-backend/websearch"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func main() {
	envLoaded := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Development())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if !envLoaded {
		logger.Warn("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	m := metrics.New()

	// Initialize database connections
	db, err := initPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Postgres: %w", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	medicationRepo := repository.NewMedicationRepository(db)

	regulations, closeIndex, err := initRegulations(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	// Scraping stack
	fetcherOpts := []scraper.FetcherOption{
		scraper.WithFetchTimeout(cfg.ScrapeTimeout),
		scraper.WithRateLimit(cfg.FetchRatePerSec, 1),
		scraper.WithFetcherLogger(logger),
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, page cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			fetcherOpts = append(fetcherOpts, scraper.WithPageCache(cache.NewRedisPageCache(rdb, cfg.PageCacheTTL, logger)))
			logger.Info("Page cache enabled", zap.Duration("ttl", cfg.PageCacheTTL))
		}
	}
	fetcher := scraper.NewHTTPFetcher(fetcherOpts...)
	pageScraper := scraper.New(fetcher, scraper.WithLogger(logger), scraper.WithMetrics(m))

	searcher, err := initSearcher(ctx, cfg, fetcher, logger)
	if err != nil {
		return err
	}
	webSearch := websearch.NewAdapter(searcher, pageScraper,
		websearch.WithTopK(cfg.SearchTopK),
		websearch.WithMaxChars(cfg.ScrapeMaxChars),
		websearch.WithConcurrency(cfg.ScrapeConcurrency),
		websearch.WithLogger(logger),
		websearch.WithMetrics(m),
	)

	// Initialize Gemini client
	geminiClient, err := initGemini(ctx, cfg.GeminiAPIKey, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Gemini: %w", err)
	}
	defer geminiClient.Close()

	ai := llm.NewClient(
		llm.NewGeminiModel(geminiClient, cfg.GeminiModel, logger),
		llm.WithMaxToolIterations(cfg.AIMaxToolIterations),
		llm.WithLogger(logger),
		llm.WithMetrics(m),
	)

	assistant := service.NewAssistantService(
		service.AssistantWithRegulationSearcher(regulations),
		service.AssistantWithWebSearcher(webSearch),
		service.AssistantWithFallbacks(
			scraper.NewCDSCOScraper(pageScraper, "", cfg.ScrapeMaxChars),
			scraper.NewIPAScraper(fetcher, "", cfg.ScrapeMaxChars, logger, m),
		),
		service.AssistantWithMedicationLookup(medicationRepo),
		service.AssistantWithCompleter(ai),
		service.AssistantWithLogger(logger),
		service.AssistantWithMetrics(m),
	)

	// Setup Gin router
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	handlers.RegisterRoutes(r,
		handlers.NewAssistantHandler(assistant, logger),
		middleware.Auth([]byte(cfg.JWTSecret), userRepo, logger),
		m.Handler(),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
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

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func initPostgres(ctx context.Context, connString string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("Postgres connection established")
	return pool, nil
}

// initRegulations selects the local regulation search: Postgres full-text
// search, or an in-memory index loaded from corpus storage
func initRegulations(ctx context.Context, cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) (service.RegulationSearcher, func(), error) {
	if cfg.RegulationIndex != config.IndexMemory {
		logger.Info("Regulation search backed by Postgres")
		return repository.NewRegulationRepository(db), func() {}, nil
	}

	store, err := storage.NewStorageFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	idx, err := index.LoadFromStorage(ctx, store, cfg.RegulationCorpusPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load regulation corpus: %w", err)
	}

	logger.Info("Regulation search backed by memory index",
		zap.String("corpus", cfg.RegulationCorpusPath),
		zap.Int("documents", len(idx.All())),
	)
	return idx, func() {
		if err := idx.Close(); err != nil {
			logger.Warn("Failed to close regulation index", zap.Error(err))
		}
	}, nil
}

func initSearcher(ctx context.Context, cfg *config.Config, fetcher scraper.Fetcher, logger *zap.Logger) (websearch.Searcher, error) {
	if cfg.GoogleSearchAPIKey == "" || cfg.GoogleSearchCX == "" {
		logger.Warn("GOOGLE_SEARCH_API_KEY or GOOGLE_SEARCH_CX not set, using DuckDuckGo")
		return websearch.NewDuckDuckGoSearcher(fetcher, "", cfg.SearchDomain), nil
	}

	searcher, err := websearch.NewGoogleSearcher(ctx, cfg.GoogleSearchAPIKey, cfg.GoogleSearchCX, cfg.SearchDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google search: %w", err)
	}
	logger.Info("Web search backed by Google Custom Search", zap.String("domain", cfg.SearchDomain))
	return searcher, nil
}

func initGemini(ctx context.Context, apiKey string, logger *zap.Logger) (*genai.Client, error) {
	if apiKey == "" {
		logger.Warn("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	logger.Info("Gemini client initialized")
	return client, nil
}
