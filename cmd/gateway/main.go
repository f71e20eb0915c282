// Copyright 2025 Certen Protocol
//
// cmd/gateway wires the TON custodial wallet gateway's components
// together and serves the HTTP surface described in spec.md §6. Startup
// order follows the component dependency graph: database, keystore, chain
// client, then the in-memory coordination layers (C3/C4/C7) that depend on
// the chain client, then the orchestration service and HTTP router that
// depend on all of the above.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tonvault/gateway/internal/auth"
	"github.com/tonvault/gateway/internal/callback"
	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/config"
	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/httpapi"
	"github.com/tonvault/gateway/internal/metrics"
	"github.com/tonvault/gateway/internal/orchestration"
	"github.com/tonvault/gateway/internal/pending"
	"github.com/tonvault/gateway/internal/subscriber"
	"github.com/tonvault/gateway/internal/unsignedstore"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("gateway exited: %v", err)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbClient, err := database.NewClient(database.ClientConfig{
		DatabaseURL:     cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	if err := dbClient.MigrateUp(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	repos := database.NewRepositories(dbClient)

	keySecret, err := cfg.KeyEncryptionSecret()
	if err != nil {
		return fmt.Errorf("decode key encryption secret: %w", err)
	}
	keyStore, err := cryptoutil.NewKeyStore(keySecret)
	if err != nil {
		return fmt.Errorf("init keystore: %w", err)
	}

	chain, err := chainclient.Dial(ctx, chainclient.Config{
		Endpoint:       cfg.ChainRPCURL,
		RequestTimeout: cfg.ChainRPCTimeout,
	})
	if err != nil {
		return fmt.Errorf("dial chain rpc: %w", err)
	}
	defer chain.Close()

	if cfg.TokenWhitelistSeedFile != "" {
		if err := seedTokenWhitelist(ctx, repos.Whitelist, cfg.TokenWhitelistSeedFile); err != nil {
			return fmt.Errorf("seed token whitelist: %w", err)
		}
	}

	anchor, err := repos.Whitelist.GetLastKeyBlock(ctx)
	if err != nil {
		return fmt.Errorf("load key block anchor: %w", err)
	}
	if anchor != nil {
		log.Printf("last observed key block was %s", anchor.BlockID)
	}

	pendingQueue := pending.NewQueue()
	unsignedStore := unsignedstore.New()
	sub := subscriber.New(chain, pendingQueue)
	defer sub.Close()
	sub.RegisterMasterchainObserver(func(block chainclient.MasterchainBlock) {
		if !block.KeyBlock {
			return
		}
		if err := repos.Whitelist.SetLastKeyBlock(context.Background(), block.BlockID); err != nil {
			log.Printf("persist key block anchor %s: %v", block.BlockID, err)
		}
	})

	reg := metrics.New()

	verifier := auth.NewVerifier(repos.Services, cfg.AuthTimestampSkew)
	dispatcher := callback.NewDispatcher(repos.Services, cfg.CallbackHTTPTimeout)
	callbackWorker := callback.NewWorker(repos.Events, dispatcher, 5*time.Second, log.Default())

	svc := orchestration.New(orchestration.Config{
		DB:            dbClient,
		Repos:         repos,
		Chain:         chain,
		Subscriber:    sub,
		Pending:       pendingQueue,
		Unsigned:      unsignedStore,
		KeyStore:      keyStore,
		Metrics:       reg,
		DefaultExpiry: cfg.DefaultMessageExpiry,
		Logger:        log.Default(),
	})

	if err := svc.ResumeSubscriptions(ctx); err != nil {
		return fmt.Errorf("resume address subscriptions: %w", err)
	}

	go callbackWorker.Run(ctx)
	go runPendingSweepFallback(ctx, pendingQueue, chain, cfg.PendingSweepFallback)

	openapiYAML, err := os.ReadFile("openapi.yaml")
	if err != nil {
		openapiYAML = nil
	}

	router := httpapi.NewRouter(svc, verifier, reg, openapiYAML)
	apiServer := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", reg.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	errCh := make(chan error, 2)
	go func() {
		log.Printf("api listening on %s", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Printf("shutdown signal received")
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("api server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown: %v", err)
	}

	return nil
}

// runPendingSweepFallback ticks the C3 pending-message sweep on a fixed
// cadence so waiters still expire when a workchain sees no new blocks for
// a while (spec.md §5 backpressure: block arrival is the primary trigger,
// this is the fallback).
func runPendingSweepFallback(ctx context.Context, q *pending.Queue, chain chainclient.ChainClient, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Basechain only: custodial wallets are deployed on workchain 0.
			q.Sweep(0, chain.CurrentUTime())
		}
	}
}

type whitelistSeedEntry struct {
	RootAddress string `json:"rootAddress" yaml:"rootAddress"`
	Name        string `json:"name" yaml:"name"`
	Version     int32  `json:"version" yaml:"version"`
}

// seedTokenWhitelist loads a static set of jetton roots from a YAML file at
// startup, so token transfers against known roots are observed even before
// any add_token_whitelist-equivalent admin action runs.
func seedTokenWhitelist(ctx context.Context, repo *database.WhitelistRepository, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var entries []whitelistSeedEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, e := range entries {
		if err := repo.UpsertTokenWhitelist(ctx, &database.TokenWhitelist{
			RootAddress: e.RootAddress, Name: e.Name, Version: e.Version,
		}); err != nil {
			return fmt.Errorf("upsert whitelist entry %s: %w", e.RootAddress, err)
		}
	}
	return nil
}
