package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akashipov/userdirectory/internal/arguments"
	"github.com/akashipov/userdirectory/internal/broker"
	"github.com/akashipov/userdirectory/internal/handlers"
	"github.com/akashipov/userdirectory/internal/pkg/middleware/logger"
	"github.com/akashipov/userdirectory/internal/server"
	"github.com/akashipov/userdirectory/internal/service"
	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/cache"
	"github.com/akashipov/userdirectory/internal/storage/memory"
	"github.com/akashipov/userdirectory/internal/storage/mongodb"
	"github.com/akashipov/userdirectory/internal/storage/postgres"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const startupTimeout = 10 * time.Second

func SignalWorker(done chan struct{}, log *zap.SugaredLogger) {
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigint
	log.Infof("Signal: %v", sig)
	close(done)
}

func openStorage(ctx context.Context, cfg *arguments.ServerConfig, log *zap.SugaredLogger) (storage.Store, error) {
	switch cfg.Storage {
	case arguments.StorageMongo:
		s, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB, log)
		if err != nil {
			return nil, err
		}
		if err = s.CreateIndexes(ctx); err != nil {
			s.Close(ctx)
			return nil, err
		}
		return s, nil
	case arguments.StorageMemory:
		return memory.New(), nil
	default:
		w, err := postgres.NewSqlWorker(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return nil, err
		}
		if err = w.CreateDefaultTables(ctx); err != nil {
			w.Close(ctx)
			return nil, err
		}
		return w, nil
	}
}

func main() {
	cfg, err := arguments.ParseArgsServer(os.Args[1:])
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(2)
	}
	log, err := logger.GetLogger(cfg.LogLevel)
	if err != nil {
		fmt.Println("Log creation problem " + err.Error())
		os.Exit(1)
	}
	defer log.Sync()
	if err = run(cfg, log); err != nil {
		log.Errorln(err.Error())
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *arguments.ServerConfig, log *zap.SugaredLogger) error {
	log.Infow("Starting", "http", cfg.HPServer, "storage", cfg.Storage,
		"nats", cfg.NatsURL, "cache_size", cfg.CacheSize, "cache_ttl", cfg.CacheTTL())

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("Problem with opening storage: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Errorf("Problem with closing storage: %s", err.Error())
		}
	}()

	cached := cache.New(store, cfg.CacheSize, cfg.CacheTTL(), log)
	cached.Warm(ctx)
	svc := service.NewUserService(cached, log)

	if cfg.NatsURL != "" {
		sc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			return fmt.Errorf("Problem with connecting to nats: %w", err)
		}
		defer func() {
			sc.Close()
			log.Infoln("Subscription was closed!")
		}()
		imp := broker.NewImporter(svc, log)
		if err = imp.Start(sc, cfg.NatsSubject); err != nil {
			return err
		}
		defer imp.Stop()
	}

	done := make(chan struct{})
	errs := make(chan error, 1)
	var w sync.WaitGroup
	go SignalWorker(done, log)

	srv := server.NewServer(cfg.HPServer, handlers.ServerRouter(svc, log), log)
	w.Add(1)
	srv.RunServer(done, &w, errs)
	select {
	case err = <-errs:
		return err
	default:
		return nil
	}
}
