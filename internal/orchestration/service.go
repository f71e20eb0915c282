// Copyright 2025 Certen Protocol
//
// Service orchestration (C9, spec.md §4.7). Composes C1-C7 into the
// gateway's public operations: create/add address, send/confirm/mint/burn,
// search, mark events, metrics.
package orchestration

import (
	"log"
	"time"

	"github.com/tonvault/gateway/internal/chainclient"
	"github.com/tonvault/gateway/internal/cryptoutil"
	"github.com/tonvault/gateway/internal/database"
	"github.com/tonvault/gateway/internal/metrics"
	"github.com/tonvault/gateway/internal/pending"
	"github.com/tonvault/gateway/internal/subscriber"
	"github.com/tonvault/gateway/internal/unsignedstore"
)

// Service is the C9 orchestration layer. It holds references to every
// lower component and exposes the operations the HTTP surface calls.
type Service struct {
	db         *database.Client
	repos      *database.Repositories
	chain      chainclient.ChainClient
	subscriber *subscriber.Subscriber
	pending    *pending.Queue
	unsigned   *unsignedstore.Store
	keystore   *cryptoutil.KeyStore
	metrics    *metrics.Registry

	defaultExpiry time.Duration
	logger        *log.Logger
}

// Config bundles the constructor dependencies.
type Config struct {
	DB            *database.Client
	Repos         *database.Repositories
	Chain         chainclient.ChainClient
	Subscriber    *subscriber.Subscriber
	Pending       *pending.Queue
	Unsigned      *unsignedstore.Store
	KeyStore      *cryptoutil.KeyStore
	Metrics       *metrics.Registry
	DefaultExpiry time.Duration
	Logger        *log.Logger
}

func New(cfg Config) *Service {
	if cfg.DefaultExpiry <= 0 {
		cfg.DefaultExpiry = 60 * time.Second
	}
	return &Service{
		db: cfg.DB, repos: cfg.Repos, chain: cfg.Chain, subscriber: cfg.Subscriber,
		pending: cfg.Pending, unsigned: cfg.Unsigned, keystore: cfg.KeyStore,
		metrics:       cfg.Metrics,
		defaultExpiry: cfg.DefaultExpiry, logger: cfg.Logger,
	}
}
