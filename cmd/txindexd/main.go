// txindexd is the transaction indexing and serving daemon: it consumes
// raw transaction messages off Kafka, persists them to Postgres, fans
// newly indexed rows out to live WebSocket subscribers, and answers the
// REST query API, all from a single long-running process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/txindexd/txindexd/internal/build"
	"github.com/txindexd/txindexd/internal/cache"
	"github.com/txindexd/txindexd/internal/config"
	"github.com/txindexd/txindexd/internal/httpapi"
	"github.com/txindexd/txindexd/internal/ingest"
	"github.com/txindexd/txindexd/internal/kv"
	"github.com/txindexd/txindexd/internal/ratelimit"
	"github.com/txindexd/txindexd/internal/txlog"
	"github.com/txindexd/txindexd/internal/txstore"
	"github.com/txindexd/txindexd/internal/walletauth"
	"github.com/txindexd/txindexd/internal/wsapi"
)

const serviceName = "txindexd"

// serviceVersion is stamped at build time in a production release; here
// it simply identifies this tree during development.
var serviceVersion = "0.1.0-dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	confPath := os.Getenv("TXINDEXD_CONF")
	cfg, err := config.Load(confPath, os.Args[1:])
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logWriter := build.NewRotatingLogWriter()
	if err := logWriter.InitLogRotator("./txindexd.log", 10, 3); err != nil {
		return fmt.Errorf("initializing log rotator: %w", err)
	}
	txlog.SetupLoggers(logWriter)
	logWriter.SetLogLevels(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *txstore.Store
	if cfg.Postgres.Enabled {
		store, err = txstore.New(ctx, txstore.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConnections: int32(cfg.Postgres.MaxConnections),
			ConnectTimeout: time.Duration(cfg.Postgres.ConnectTimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer store.Close()
	} else {
		txlog.SrvrLog.Warnf("postgres disabled; query and ingest endpoints will report unavailable")
	}

	var kvStore *kv.Store
	if cfg.Redis.Enabled {
		kvStore, err = kv.New(kv.Config{
			Addr:           cfg.Redis.Addr,
			ConnectTimeout: time.Duration(cfg.Redis.ConnectTimeoutMs) * time.Millisecond,
			CommandTimeout: time.Duration(cfg.Redis.CommandTimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
	} else {
		txlog.SrvrLog.Warnf("redis disabled; wallet-auth nonce issuance will report unavailable")
	}

	limits := ratelimit.New()
	respCache := cache.NewMemoryCache(cfg.Cache.MaxEntries)
	hub := wsapi.NewHub()

	gate := walletauth.New(walletauth.Config{
		Enabled:             cfg.Auth.Enabled,
		HeaderWalletAddress: cfg.Auth.HeaderWalletAddress,
		HeaderWalletSig:     cfg.Auth.HeaderWalletSig,
		HeaderNonce:         cfg.Auth.HeaderNonce,
		NonceTTL:            time.Duration(cfg.Auth.NonceTTLSecs) * time.Second,
		BypassPaths:         cfg.Auth.BypassPaths,
		ProtectPrefixes:     cfg.Auth.ProtectPrefixes,
		AcceptSigB58:        cfg.Auth.AcceptSigB58,
		AcceptSigB64:        cfg.Auth.AcceptSigB64,
		CanonicalizeMethod:  cfg.Auth.CanonicalizeMethod,
		CanonicalizePath:    cfg.Auth.CanonicalizePath,
		KVKeyPrefix:         cfg.Auth.KVKeyPrefix,
	}, kvStore)

	var wsHandler *wsapi.Handler
	if cfg.WS.Enabled && store != nil {
		wsHandler = wsapi.NewHandler(wsapi.Config{
			PingInterval:       time.Duration(cfg.WS.PingIntervalSecs) * time.Second,
			IdleTimeout:        time.Duration(cfg.WS.IdleTimeoutSecs) * time.Second,
			MaxSubscriptions:   cfg.WS.MaxSubscriptionsPerConn,
			MaxClientMsgPerMin: cfg.WS.MaxClientMsgPerMin,
			MaxEventsPerSec:    cfg.WS.MaxEventsPerSec,
			ResumeCatchupLimit: cfg.WS.ResumeCatchupLimit,
		}, store, limits, hub)
	}

	var brokerChecker httpapi.BrokerChecker
	if len(cfg.Kafka.Brokers) > 0 {
		brokers := cfg.Kafka.Brokers
		brokerChecker = func(ctx context.Context) error {
			conn, err := kafkago.DialContext(ctx, "tcp", brokers)
			if err != nil {
				return err
			}
			defer conn.Close()
			_, err = conn.Brokers()
			return err
		}
	}

	srv := httpapi.New(httpapi.Config{
		RequestIDHeader:      cfg.RequestIDHeader,
		RateLimitEnabled:     cfg.RateLimit.Enabled,
		IPMaxRequests:        cfg.RateLimit.IPMaxRequests,
		IPWindow:             time.Duration(cfg.RateLimit.IPWindowSecs) * time.Second,
		WalletMaxRequests:    cfg.RateLimit.WalletMaxRequests,
		WalletWindow:         time.Duration(cfg.RateLimit.WalletWindowSecs) * time.Second,
		RespectXForwardedFor: cfg.RateLimit.RespectXForwardedFor,
		RateLimitWhitelist:   cfg.RateLimit.WhitelistPaths,
		CacheEnabled:         cfg.Cache.Enabled,
		CacheTTL:             time.Duration(cfg.Cache.TTLSecs) * time.Second,
		CacheETagSalt:        cfg.Cache.ETagSalt,
		WSPath:               cfg.WS.Path,
		ServiceName:          serviceName,
		ServiceVersion:       serviceVersion,
	}, store, kvStore, gate, limits, respCache, wsHandler, brokerChecker)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Router(),
	}

	go func() {
		txlog.SrvrLog.Infof("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			txlog.SrvrLog.Errorf("http server: %v", err)
		}
	}()

	sweepTicker := time.NewTicker(time.Minute)
	defer sweepTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sweepTicker.C:
				limits.Sweep(10 * time.Minute)
			}
		}
	}()

	var pipeline *ingest.Pipeline
	if store != nil {
		var publisher ingest.Publisher = ingest.NopPublisher{}
		if cfg.Ingest.EmitWSEvents {
			publisher = hub
		}

		pipeline = ingest.New(ingest.Config{
			Brokers:       []string{cfg.Kafka.Brokers},
			GroupID:       cfg.Kafka.GroupID,
			InputTopic:    cfg.Kafka.InputTopic,
			DLQTopic:      cfg.Kafka.DLQTopic,
			BatchSize:     cfg.Ingest.DBInsertBatchSize,
			FlushInterval: time.Duration(cfg.Kafka.PollIntervalMs) * time.Millisecond,
			RetryBackoff:  time.Duration(cfg.Kafka.RetryBackoffMs) * time.Millisecond,
			MaxRetries:    cfg.Kafka.MaxRetries,
			EmitEvents:    cfg.Ingest.EmitWSEvents,
		}, store, publisher)
		defer pipeline.Close()

		go func() {
			if err := pipeline.Run(ctx); err != nil && ctx.Err() == nil {
				txlog.IngestLog.Errorf("ingestion pipeline exited: %v", err)
			}
		}()
	} else {
		txlog.IngestLog.Warnf("postgres disabled; ingestion pipeline not started")
	}

	<-ctx.Done()
	txlog.SrvrLog.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.GracefulShutdownSecs)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		txlog.SrvrLog.Errorf("http server shutdown: %v", err)
	}

	return nil
}
