package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/market-worker/consumer"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/market-worker/pubsub"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/market-worker/repository"
	sharedcache "github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/cache"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/config"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/db"
	skafka "github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/kafka"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/logger"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/metrics"
	"github.com/kitaikuyo123/EasyBet-blockchain/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("market-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	repo := repository.NewPostgresRepo(pg)

	// Consumer group market-worker no tópico market_events
	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicMarketEvents, "market-worker")
	defer reader.Close()

	var dlqWriter *skafka.Writer
	if cfg.TopicMarketEventsDLQ != "" {
		dlqWriter = skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketEventsDLQ)
		defer dlqWriter.Close()
	}

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_worker_messages_consumed_total", Help: "mensagens consumidas"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_worker_db_writes_total", Help: "escritas no histórico"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "market_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persist, errorsBy)

	// Broadcaster para repassar eventos ao WebSocket via Redis Pub/Sub
	broadcaster := pubsub.NewRedisBroadcaster(redisClient)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Repo:       repo,
		DLQWriter:  dlqWriter,
		OnConsumed: func() { consumed.Inc() },
		OnPersist:  func() { persist.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },

		// Após persistir, envia o evento para o WebSocket via Redis Pub/Sub
		OnAfterPersist: func(env events.Envelope) {
			msg := pubsub.WSUpdate{GambleID: env.GambleID, Type: env.Type, Payload: env.Payload}
			b, _ := json.Marshal(msg)

			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			if err := broadcaster.Publish(ctx, cfg.RedisPubSubChannel, b); err != nil {
				log.Warn("ws broadcast publish failed", zap.Error(err))
			}
		},
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("market-worker started")
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("market-worker stopped")
}
