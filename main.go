package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"movie-catalog/cmd"
	"movie-catalog/internal/data/repository"
	"movie-catalog/internal/tmdb"
	"movie-catalog/internal/wire"
	"movie-catalog/pkg/cache"
	"movie-catalog/pkg/database"
	"movie-catalog/pkg/docstore"
	"movie-catalog/pkg/events"
	"movie-catalog/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("store", config.Store.Driver),
	)

	// Open the document store
	store, err := openStore(config)
	if err != nil {
		logger.Fatal("Failed to open document store", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			logger.Warn("Failed to close document store", zap.Error(err))
		}
	}()

	logger.Info("Document store connected successfully", zap.String("driver", config.Store.Driver))

	repos := repository.NewRepository(store, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = repos.EnsureIndexes(ctx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}

	// Upstream metadata client
	opts := []tmdb.Option{
		tmdb.WithLogger(logger),
		tmdb.WithBreaker(tmdb.NewBreaker("tmdb", config.TMDB.BreakerFailures, config.TMDB.BreakerTimeout, logger)),
	}

	if config.Redis.URL != "" {
		rdb, err := database.InitRedis(config.Redis.URL)
		if err != nil {
			logger.Warn("Redis unavailable, genre cache stays in process", zap.Error(err))
		} else {
			defer rdb.Close()
			genres := cache.NewGenreStore(cache.NewRedisCache(rdb, config.App.Name))
			opts = append(opts, tmdb.WithSharedGenres(genres))
			logger.Info("Redis connected, sharing genre cache")
		}
	}

	if config.TMDB.APIKey == "" && config.TMDB.AccessToken == "" {
		logger.Warn("No TMDB credentials configured, upstream calls will be rejected")
	}

	catalog := tmdb.New(tmdb.Config{
		BaseURL:           config.TMDB.BaseURL,
		APIKey:            config.TMDB.APIKey,
		AccessToken:       config.TMDB.AccessToken,
		RequestsPerSecond: config.TMDB.RequestsPerSecond,
		Retry: tmdb.RetryPolicy{
			MaxRetries: config.TMDB.MaxRetries,
			BaseDelay:  config.TMDB.RetryDelay,
		},
		ConnectTimeout: config.TMDB.ConnectTimeout,
		ReadTimeout:    config.TMDB.ReadTimeout,
		GenreTTL:       config.TMDB.GenreTTL,
	}, opts...)

	// Review events
	publisher, err := events.Connect(config.NATS.URL, logger)
	if err != nil {
		logger.Warn("NATS unavailable, review events disabled", zap.Error(err))
		publisher = events.NewPublisher(nil, logger)
	}
	defer publisher.Close()

	// Wire all dependencies
	app := wire.Wiring(repos, catalog, publisher, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
}

func openStore(config *utils.Config) (docstore.Store, error) {
	switch config.Store.Driver {
	case "mongo", "":
		client, err := database.InitMongo(config.Mongo)
		if err != nil {
			return nil, err
		}
		return docstore.NewMongoStore(client, config.Mongo.Database), nil
	case "postgres":
		db, err := database.InitDB(config.Database)
		if err != nil {
			return nil, err
		}
		return docstore.NewPostgresStore(db), nil
	case "memory":
		return docstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown DOCSTORE_DRIVER %q", config.Store.Driver)
	}
}
