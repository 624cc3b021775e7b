package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/config"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// targets
	gambleURL := os.Getenv("GAMBLE_URL")
	if gambleURL == "" {
		gambleURL = "http://localhost:8083"
	}
	tokenURL := os.Getenv("TOKEN_URL")
	if tokenURL == "" {
		tokenURL = "http://localhost:8082"
	}
	gamble := rp(gambleURL)
	tokenSvc := rp(tokenURL)

	mux := http.NewServeMux()

	// mercados (ex.: /api/gambles/* -> gamble-service /v1/gambles/*)
	toV1 := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.URL.Path = "/v1" + strings.TrimPrefix(r.URL.Path, "/api")
			h.ServeHTTP(w, r)
		})
	}
	mux.Handle("/api/gambles", toV1(gamble))
	mux.Handle("/api/gambles/", toV1(gamble))
	mux.Handle("/api/bets/", toV1(gamble))

	// token (ex.: /api/token/* -> token-service /token/*)
	mux.Handle("/api/token/", http.StripPrefix("/api", tokenSvc))

	// WebSocket de eventos de mercado
	mux.Handle("/ws", gamble)

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
