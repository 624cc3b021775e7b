package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/config"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/db"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/logger"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/metrics"
	thttp "github.com/kitaikuyo123/EasyBet-blockchain/internal/token-service/http"
	trepo "github.com/kitaikuyo123/EasyBet-blockchain/internal/token-service/repo"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("token-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "token-service"), zap.String("env", cfg.Env))

	// Conexão com Postgres para o ledger de tokens
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Instancia repositório e servidor HTTP do token
	repo := trepo.NewPostgres(pg)
	api := thttp.NewServer(log, repo)

	// Servidor HTTP público (API do token)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8082
		Handler: api.Router(),
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	// Inicia servidor principal da API do token
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
