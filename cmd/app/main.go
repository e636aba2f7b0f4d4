package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/clock"
	"app/internal/config"
	"app/internal/ledger"
	"app/internal/logger"
	"app/internal/remote"
	"app/internal/scheduler"
	"app/internal/service"
	"app/internal/session"
	"app/internal/snapshot"
	"app/internal/storage"
	"app/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	logger := logger.New()

	// 1. Load configuration
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// 2. Open the local snapshot store
	snap, err := snapshot.Open(cfg.SnapshotPath, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to open snapshot store: %v", err)
	}
	defer snap.Close()

	// 3. Session provider and guard
	provider := session.NewTokenProvider(cfg.JWTSecret)
	if cfg.SessionToken != "" {
		provider.SetToken(cfg.SessionToken)
	}
	guard := session.NewGuard(provider, logger)

	// 4. Remote backend: direct Postgres when configured, REST otherwise
	var backend remote.Backend
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.PostgresURL)
		if err != nil {
			logger.Fatal().Msgf("Failed to connect to Postgres: %v", err)
		}
		defer pool.Close()
		backend = remote.NewPostgresBackend(pool, logger)
	} else {
		backend = remote.NewRESTBackend(cfg.RemoteBaseURL, cfg.RemoteAPIKey,
			time.Duration(cfg.RemoteTimeoutSec)*time.Second, logger)
	}

	// 5. Stores and ledger
	clk := clock.System()
	plans := store.NewPlanStore(backend.Plans(), guard, snap, clk, logger)
	completions := store.NewCompletionStore(backend.Completions(), guard, snap, clk, logger)
	quizzes := store.NewQuizStore(backend.QuizResults(), guard, snap, clk, logger)
	usage := ledger.NewStore(backend.Usage(), guard, snap, clk, logger)

	// 6. Attachment storage (optional)
	var uploader storage.Uploader
	if cfg.S3Bucket != "" {
		s3Config, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		)
		if err != nil {
			logger.Fatal().Msgf("Failed to load S3 config: %v", err)
		}
		s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
			if cfg.S3URL != "" {
				o.BaseEndpoint = aws.String(cfg.S3URL)
			}
			o.UsePathStyle = true
		})
		uploader = storage.NewS3Uploader(s3Client, cfg.S3Bucket, logger)
	}

	// 7. Planner service (the composition root hands this to consumers;
	// no AI generator is wired in the standalone agent)
	catalog, err := service.NewStaticCatalog(cfg.SubscriptionTier)
	if err != nil {
		logger.Fatal().Msgf("Invalid subscription tier: %v", err)
	}
	planner := service.NewPlannerService(plans, completions, quizzes, usage, catalog, provider, uploader, nil, logger)

	// 8. Sync scheduler
	sched := scheduler.New([]scheduler.Target{
		scheduler.NewTarget("study_plans", plans.FetchAll),
		scheduler.NewTarget("task_completions", completions.FetchAll),
		scheduler.NewTarget("quiz_results", quizzes.FetchAll),
		scheduler.NewTarget("monthly_usage", func(ctx context.Context) error {
			usage.Read(ctx)
			return nil
		}),
	}, scheduler.Config{
		Interval:    time.Duration(cfg.SyncIntervalSec) * time.Second,
		SettleDelay: time.Duration(cfg.SyncSettleDelaySec) * time.Second,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sched.Run(ctx)
	if guard.SignedIn() {
		sched.SetAuthenticated(true)
	}

	// SIGHUP acts as the foreground-focus trigger for the agent process.
	focus := make(chan os.Signal, 1)
	signal.Notify(focus, syscall.SIGHUP)
	go func() {
		for range focus {
			sched.NotifyFocus(ctx)
		}
	}()

	reading := planner.Usage(ctx)
	logger.Info().
		Int("interval_sec", cfg.SyncIntervalSec).
		Str("month", reading.Month).
		Int64("plans_created", reading.PlansCreated).
		Msg("Sync agent started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")
	cancel()
}
