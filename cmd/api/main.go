package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/ticketvault/ticketvault/internal/adapters/crdb"
	"github.com/ticketvault/ticketvault/internal/adapters/memory"
	mongoadapter "github.com/ticketvault/ticketvault/internal/adapters/mongo"
	redisadapter "github.com/ticketvault/ticketvault/internal/adapters/redis"
	"github.com/ticketvault/ticketvault/internal/adapters/settlement"
	"github.com/ticketvault/ticketvault/internal/clock"
	"github.com/ticketvault/ticketvault/internal/config"
	"github.com/ticketvault/ticketvault/internal/domain"
	httphandler "github.com/ticketvault/ticketvault/internal/http"
	"github.com/ticketvault/ticketvault/internal/idempotency"
	"github.com/ticketvault/ticketvault/internal/ledger"
	"github.com/ticketvault/ticketvault/internal/observability"
	"github.com/ticketvault/ticketvault/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	var store ledger.Store
	if cfg.PGDSN != "" {
		pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pool.Close()
		crdbStore := crdb.NewStore(pool)
		if err := crdbStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("failed to ensure schema: %v", err)
		}
		store = crdbStore
	} else {
		logger.Warn("PG_DSN not set, using in-memory store")
		store = memory.NewStore()
	}

	var audit *mongoadapter.AuditLogger
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		audit = mongoadapter.NewAuditLogger(mongoClient.Database("ticketvault"), logger)
	}

	var idemp *idempotency.Idempotency
	var rl *rateLimit.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		idemp = idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
		rl = rateLimit.NewRateLimiter(redisadapter.NewCache(redisClient))
	}

	var bank ledger.Bank
	var token ledger.Token
	if cfg.SettlementURL != "" {
		client := settlement.NewClient(cfg.SettlementURL, cfg.TokenAddress)
		bank, token = client, client
	} else {
		logger.Warn("SETTLEMENT_URL not set, transfers are log-only")
		logging := settlement.NewLogging(logger)
		bank, token = logging, logging
	}

	conv, err := domain.NewConverter(cfg.EthToUSDRate, cfg.AdminFeePercent)
	if err != nil {
		log.Fatalf("invalid conversion config: %v", err)
	}

	lg := ledger.New(store, bank, token, clock.NewSystem(), conv,
		domain.Address(cfg.OwnerAddress), domain.Address(cfg.VaultAddress))

	handlers := httphandler.NewHandlers(cfg, lg, idemp, audit, logger)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
