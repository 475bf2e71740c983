package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orbitalmind/kernel/internal/bus"
	"github.com/orbitalmind/kernel/internal/config"
	"github.com/orbitalmind/kernel/internal/delegation"
	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/kg"
	"github.com/orbitalmind/kernel/internal/rpc"
	"github.com/orbitalmind/kernel/internal/store"
	"github.com/orbitalmind/kernel/internal/thought"
	"github.com/orbitalmind/kernel/internal/transport"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file (defaults built in if omitted)")
	dbPath := flag.String("db", "", "Path to the SQLite database, overrides the config's system.store_database")
	port := flag.Int("port", 0, "HTTP port, overrides the config's server.port")
	maxConcurrent := flag.Int("max-concurrent", 2, "Maximum concurrently running delegated agent jobs")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.System.StoreDatabase = *dbPath
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	st, err := store.Open(cfg.System.StoreDatabase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	emb := embedding.NewHTTPClientWithAPIKey(cfg.System.EmbeddingProvider, cfg.System.EmbeddingModel, cfg.System.EmbeddingDimension, cfg.System.EmbeddingAPIKey)

	eventBus, err := bus.Start()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start event bus: %v\n", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	kgEngine := kg.New(st, emb, cfg)
	thoughtEngine := thought.New(st, emb, kgEngine, cfg)
	worker := delegation.NewWorker(st, eventBus, *maxConcurrent, 500*time.Millisecond)

	d := rpc.NewDispatcher()
	rpc.RegisterThink(d, thoughtEngine)
	rpc.RegisterSearch(d, cfg, kgEngine, emb, thoughtEngine)
	rpc.RegisterRemember(d, st, emb)
	rpc.RegisterMaintain(d, st, emb)
	rpc.RegisterModerate(d, st, emb)
	rpc.RegisterHowto(d)
	rpc.RegisterDelegation(d, st, worker)

	srv := transport.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), d, cfg.Server.AuthToken, version, transport.Info{
		Embedding: fmt.Sprintf("%s (%s, dim=%d)", cfg.System.EmbeddingModel, cfg.System.EmbeddingProvider, cfg.System.EmbeddingDimension),
		DB:        cfg.System.StoreDatabase,
		IndexesOK: true, // store.Open already applied and verified the schema migration above
	})

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go worker.Run(workerCtx)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("[kernel] listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErr <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		}
	case <-shutdown:
		log.Println("[kernel] shutdown signal received, draining")
	}

	cancelWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[kernel] http shutdown error: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
