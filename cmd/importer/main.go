package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/belugamedia/beluga/internal/config"
	importerrepo "github.com/belugamedia/beluga/internal/importer/repository"
	importerservice "github.com/belugamedia/beluga/internal/importer/service"
	"github.com/belugamedia/beluga/internal/importer/source"
	"github.com/belugamedia/beluga/internal/importer/source/goodreads"
	"github.com/belugamedia/beluga/internal/importer/source/mediatracker"
	"github.com/belugamedia/beluga/internal/importer/worker"
	"github.com/belugamedia/beluga/internal/infrastructure/queue"
	"github.com/belugamedia/beluga/internal/infrastructure/queue/kafka"
	"github.com/belugamedia/beluga/internal/infrastructure/queue/memory"
	natsqueue "github.com/belugamedia/beluga/internal/infrastructure/queue/nats"
	mediarepo "github.com/belugamedia/beluga/internal/media/repository"
	mediaservice "github.com/belugamedia/beluga/internal/media/service"
	"github.com/belugamedia/beluga/pkg/database"
	"github.com/belugamedia/beluga/pkg/interfaces"
	"github.com/belugamedia/beluga/pkg/logger"
)

const serviceName = "importer-service"

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New()

	log.Info("Starting service",
		interfaces.String("service", serviceName),
		interfaces.String("environment", cfg.Server.Environment))

	// Connect to the database and run migrations
	db, err := database.NewGormDB(&database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxConnections:  cfg.Database.MaxOpenConns,
		MinConnections:  cfg.Database.MaxIdleConns,
		MaxConnLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", interfaces.Error(err))
	}
	if err := database.MigrateDatabase(db, allModels()...); err != nil {
		log.Fatal("Failed to run migrations", interfaces.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Select the queue backend
	jobQueue, cleanup, err := buildQueue(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize job queue", interfaces.Error(err))
	}
	defer cleanup()

	// Wire the media context and the import pipeline
	media := mediaservice.NewMediaService(mediarepo.NewGormMediaStore(db), log)
	reports := importerrepo.NewGormReportStore(db)
	adapters := source.NewRegistry(
		mediatracker.NewAdapter(log),
		goodreads.NewAdapter(log),
	)
	importer := importerservice.NewImporterService(
		reports, media, jobQueue, adapters, log, cfg.Importer.StaleThreshold)

	w := worker.New(jobQueue, importer, log, cfg.Importer.Concurrency, cfg.Importer.SweepInterval)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("Worker exited", interfaces.Error(err))
		os.Exit(1)
	}

	log.Info("Service stopped")
}

// jobBackend is both ends of the queue contract; every backend satisfies it.
type jobBackend interface {
	importerservice.JobQueue
	queue.Consumer
}

func buildQueue(cfg *config.Config, log interfaces.Logger) (jobBackend, func(), error) {
	switch cfg.Queue.Backend {
	case "nats":
		client, cleanup, err := natsqueue.NewClient(natsqueue.ClientConfig{
			URL:           cfg.NATS.URL,
			ClientID:      cfg.NATS.ClientID,
			MaxReconnect:  cfg.NATS.MaxReconnect,
			ReconnectWait: cfg.NATS.ReconnectWait,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		q := natsqueue.NewQueue(client, natsqueue.QueueConfig{
			ConsumerName: cfg.NATS.ConsumerName,
			AckWait:      cfg.NATS.AckWait,
			MaxDeliver:   cfg.NATS.MaxDeliver,
		}, log)
		return q, cleanup, nil
	case "kafka":
		q, err := kafka.NewQueue(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, log)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	case "memory":
		return memory.NewQueue(0, log), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}

func allModels() []interface{} {
	return []interface{}{
		&importerrepo.ImportReportModel{},
		&mediarepo.MetadataModel{},
		&mediarepo.SeenModel{},
		&mediarepo.ReviewModel{},
		&mediarepo.CollectionModel{},
		&mediarepo.CollectionEntryModel{},
		&mediarepo.SummaryJobModel{},
	}
}
