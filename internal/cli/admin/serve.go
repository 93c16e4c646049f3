package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/lexora-ai/lexora/internal/api/handlers"
	"github.com/lexora-ai/lexora/internal/config"
	"github.com/lexora-ai/lexora/internal/database"
	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/jobs"
	"github.com/lexora-ai/lexora/internal/openai"
	"github.com/lexora-ai/lexora/internal/repository"
	"github.com/lexora-ai/lexora/internal/server"
	"github.com/lexora-ai/lexora/internal/service"
	"github.com/lexora-ai/lexora/internal/storage"
	"github.com/lexora-ai/lexora/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the lexora API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if a DSN is configured
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	embeddingRepo := repository.NewEmbeddingRepository(pool)
	cacheRepo := repository.NewSearchCacheRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	if cfg.InitAdminUsername != "" {
		if err := bootstrapAdminUser(ctx, cfg.InitAdminUsername, userRepo); err != nil {
			return fmt.Errorf("failed to bootstrap admin user: %w", err)
		}
	}

	var s3Client *storage.S3Client
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err = storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("LEXORA_OPENAI_API_KEY is required")
	}
	aiClient := openai.NewClient(cfg.OpenAIAPIKey)

	extractor := service.NewExtractor(aiClient)

	var sourceStore service.SourceStore
	var uploadStore service.UploadStore
	if s3Client != nil {
		sourceStore = s3Client
		uploadStore = s3Client
	}

	ingestSvc := service.NewIngestService(docRepo, chunkRepo, embeddingRepo, extractor, aiClient, sourceStore, aiClient.EmbeddingModel())
	searchSvc := service.NewSearchService(aiClient, embeddingRepo, cacheRepo)
	docSvc := service.NewDocumentService(docRepo, convRepo, userRepo, embeddingRepo, ingestSvc, uploadStore, txRunner)
	chatSvc := service.NewChatService(docRepo, convRepo, searchSvc, aiClient, txRunner, openai.DefaultCompletionModel)

	ingestWorker := jobs.NewWorker("ingest", jobs.NewIngestWorker(docRepo, ingestSvc), cfg.IngestPollInterval)
	go ingestWorker.Start(ctx)

	janitorWorker := jobs.NewWorker("cache janitor", jobs.NewCacheJanitor(cacheRepo), cfg.CacheSweepInterval)
	go janitorWorker.Start(ctx)

	routerCfg := server.RouterConfig{
		UserLookup:      userRepo,
		DocumentHandler: handlers.NewDocumentHandler(docSvc, ingestSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ingestWorker.Stop()
	janitorWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func bootstrapAdminUser(ctx context.Context, username string, userRepo *repository.UserRepository) error {
	existing, err := userRepo.GetByUsername(ctx, username)
	if err != nil && err != domain.ErrUserNotFound {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		log.Printf("bootstrap: admin user '%s' already exists (id: %d)", existing.Username, existing.ID)
		return nil
	}

	id, err := userRepo.Create(ctx, &domain.User{
		Username:  username,
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	log.Printf("bootstrap: created admin user '%s' (id: %d)", username, id)
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
