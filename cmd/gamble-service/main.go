package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	gcache "github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/cache"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/engine"
	ghttp "github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/http"
	kpub "github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/producer"
	grepo "github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/repo"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/token"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/ws"
	sharedcache "github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/cache"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/config"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/db"
	skafka "github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/kafka"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/logger"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("gamble-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "gamble-service"), zap.String("env", cfg.Env))

	// Postgres para snapshots do engine
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis para cache de order book e pub/sub do ws
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer (topic market_events)
	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketEvents)
	defer writer.Close()

	// Cliente do token-service: escrow, transferências e payout da liquidação
	tcli := token.New(cfg.TokenURL, cfg.EscrowAccount)

	// Engine em memória, reidratado do snapshot no boot
	eng := engine.New(tcli)
	repository := grepo.NewPostgres(pg)
	boot := context.Background()
	gambles, err := repository.LoadGambles(boot)
	if err != nil {
		log.Fatal("load gambles", zap.Error(err))
	}
	bets, err := repository.LoadBets(boot)
	if err != nil {
		log.Fatal("load bets", zap.Error(err))
	}
	if err := eng.Restore(gambles, bets); err != nil {
		log.Fatal("restore engine", zap.Error(err))
	}
	log.Info("engine restored",
		zap.Int("gambles", len(gambles)),
		zap.Int("bets", len(bets)),
	)

	// WebSocket hub alimentado pelo Redis Pub/Sub (publicado pelo market-worker)
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(boot, rdb, hub, cfg.RedisPubSubChannel)

	// Métricas Prometheus por operação da API
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gamble_api_operations_total", Help: "operações da API por tipo"},
		[]string{"op"},
	)
	prometheus.MustRegister(ops)

	publ := kpub.NewKafkaPublisher(writer, cfg.TopicMarketEvents)
	bookCache := gcache.New(rdb)

	api := ghttp.NewServer(log, eng, repository, bookCache, publ, hub.HandleWS)
	api.OnOp = func(op string) { ops.WithLabelValues(op).Inc() }

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8083
		Handler: api.Router(),
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
