package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/ticketvault/ticketvault/internal/adapters/crdb"
	"github.com/ticketvault/ticketvault/internal/adapters/rabbit"
	redisadapter "github.com/ticketvault/ticketvault/internal/adapters/redis"
	"github.com/ticketvault/ticketvault/internal/adapters/settlement"
	"github.com/ticketvault/ticketvault/internal/clock"
	"github.com/ticketvault/ticketvault/internal/config"
	"github.com/ticketvault/ticketvault/internal/domain"
	"github.com/ticketvault/ticketvault/internal/ledger"
	"github.com/ticketvault/ticketvault/internal/observability"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	store := crdb.NewStore(pool)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	conv, err := domain.NewConverter(cfg.EthToUSDRate, cfg.AdminFeePercent)
	if err != nil {
		log.Fatalf("invalid conversion config: %v", err)
	}
	logging := settlement.NewLogging(logger)
	lg := ledger.New(store, logging, logging, clock.NewSystem(), conv,
		domain.Address(cfg.OwnerAddress), domain.Address(cfg.VaultAddress))

	worker := NewSettlementWorker(lg, redisCache, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Hour)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown settlement worker")
}

// SettlementWorker reminds creators about ended events whose escrow is still
// unwithdrawn. Each event is reminded at most once per remindEvery via a redis
// marker.
type SettlementWorker struct {
	ledger    *ledger.Ledger
	redis     *redisadapter.Cache
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

const remindEvery = 24 * time.Hour

func NewSettlementWorker(lg *ledger.Ledger, redis *redisadapter.Cache, rabbitPub *rabbit.Publisher, logger observability.Logger) *SettlementWorker {
	return &SettlementWorker{ledger: lg, redis: redis, rabbitPub: rabbitPub, logger: logger}
}

func (w *SettlementWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.scan(ctx); err != nil {
				w.logger.WithField("error", err.Error()).Error("settlement scan")
			}
		}
	}
}

func (w *SettlementWorker) scan(ctx context.Context) error {
	views, err := w.ledger.SettleableEvents(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, view := range views {
		view := view
		g.Go(func() error {
			return w.remind(ctx, view)
		})
	}
	return g.Wait()
}

func (w *SettlementWorker) remind(ctx context.Context, view domain.EventView) error {
	set, err := w.redis.Client().SetNX(ctx, settleKey(view.ID), "1", remindEvery).Result()
	if err != nil {
		return err
	}
	if !set {
		return nil
	}

	escrow, ok := new(big.Int).SetString(view.EscrowWei, 10)
	if !ok {
		escrow = new(big.Int)
	}
	n := domain.NewEventSettleable(view.ID, escrow)
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        n.Payload,
	}
	return w.rabbitPub.Publish(ctx, n.Name, msg)
}

func settleKey(id uint64) string {
	return "settleable:" + strconv.FormatUint(id, 10)
}
