package main

import (
	"context"
	"expvar"
	"log"
	"runtime"
	"time"

	"github.com/ringledger/callsync/internal/infrastructure/configs"
	"github.com/ringledger/callsync/internal/infrastructure/events"
	"github.com/ringledger/callsync/internal/infrastructure/jobs"
	"github.com/ringledger/callsync/internal/infrastructure/logging"
	"github.com/ringledger/callsync/internal/infrastructure/messaging"
	"github.com/ringledger/callsync/internal/infrastructure/metrics"
	"github.com/ringledger/callsync/internal/infrastructure/tracing"
	"github.com/ringledger/callsync/internal/persistence/db"
	"github.com/ringledger/callsync/internal/persistence/repository"
	"github.com/ringledger/callsync/internal/platform"
	"github.com/ringledger/callsync/internal/presentation/api"
	healthHandler "github.com/ringledger/callsync/internal/presentation/handler/health"
	recordsHandler "github.com/ringledger/callsync/internal/presentation/handler/records"
	synclogsHandler "github.com/ringledger/callsync/internal/presentation/handler/synclogs"
	syncrunsHandler "github.com/ringledger/callsync/internal/presentation/handler/syncruns"
	"github.com/ringledger/callsync/internal/recon/match"
	reconsync "github.com/ringledger/callsync/internal/recon/sync"
	"go.uber.org/zap"
)

const (
	serviceName = "callsync-api"
)

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	appLogger := logging.NewLogger(logging.NewDefaultConfig())

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	mongoCfg := &db.MongoConfig{
		URI:               cfg.Mongo.URI,
		Database:          cfg.Mongo.Database,
		ConnectionTimeout: cfg.Mongo.ConnectionTimeout,
	}
	mongoClient, err := db.NewMongoClient(ctx, mongoCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.DisconnectMongo(ctx, mongoClient)

	database := db.GetDatabase(mongoClient, mongoCfg)

	callRecordRepository := repository.NewCallRecordRepository(database)
	adjustmentRepository := repository.NewAdjustmentRepository(database)
	syncLogRepository := repository.NewSyncLogRepository(database)

	for _, repo := range []interface {
		EnsureIndexes(ctx context.Context) error
	}{callRecordRepository, adjustmentRepository, syncLogRepository} {
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to ensure indexes: %v", err)
		}
	}

	rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI)
	if err != nil {
		log.Fatal(err)
	}
	defer rabbitmq.Close()

	log.Println("Starting RabbitMQ connection")

	m := metrics.New()

	gateway := platform.NewClient(platform.ClientConfig{
		BaseURL:        cfg.Platform.BaseURL,
		APIKey:         cfg.Platform.APIKey,
		RequestTimeout: cfg.Platform.RequestTimeout,
	})

	syncPublisher := events.NewSyncPublisher(rabbitmq)

	engine := reconsync.NewEngine(
		callRecordRepository,
		syncLogRepository,
		gateway,
		syncPublisher,
		appLogger,
		m,
		reconsync.Config{
			LookupWindowMinutes: cfg.Sync.LookupWindowMins,
			PacingDelay:         cfg.Sync.PacingDelay,
			OverrideReason:      cfg.Sync.OverrideReason,
		},
	)

	policy := reconsync.Policy{BatchSize: cfg.Sync.BatchSize}

	runner := jobs.NewSyncRunner(engine, policy, callRecordRepository, appLogger, cfg.Sync.Interval)
	go runner.Start(ctx)
	defer runner.Stop()

	adjustMatcher := match.NewEngine(time.Duration(cfg.Sync.AdjustWindowMins) * time.Minute)

	// Start ingest consumer for scraped call/adjustment batches
	ingestConsumer := events.NewIngestConsumer(rabbitmq, callRecordRepository, adjustmentRepository, adjustMatcher, appLogger, m)
	go ingestConsumer.Listen()

	healthH := healthHandler.NewHandler()
	recordsH := recordsHandler.NewHandler(callRecordRepository)
	synclogsH := synclogsHandler.NewHandler(syncLogRepository)
	syncrunsH := syncrunsHandler.NewHandler(runner)

	app := api.NewApplication(*cfg, *healthH, *recordsH, *synclogsH, *syncrunsH, logger)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	logger.Fatal(app.Run(mux))
}
