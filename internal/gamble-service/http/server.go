package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/dto"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/engine"
	"github.com/kitaikuyo123/EasyBet-blockchain/pkg/contracts/events"
)

// Snapshots persiste o estado do engine após cada mutação (write-through)
type Snapshots interface {
	UpsertGamble(ctx context.Context, g engine.Gamble) error
	UpsertBet(ctx context.Context, b engine.Bet) error
}

// Publisher publica eventos de mercado no Kafka
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// BookCache guarda o order book por gamble
type BookCache interface {
	GetBook(ctx context.Context, gambleID int64, dst any) (bool, error)
	SetBook(ctx context.Context, gambleID int64, v any, ttl time.Duration) error
	InvalidateBook(ctx context.Context, gambleID int64) error
}

// Server expõe a API REST de mercados de apostas.
// O engine em memória é a autoridade; falha de snapshot vira warn,
// falha de publicação de evento é best-effort.
type Server struct {
	log   *zap.Logger
	eng   *engine.Engine
	snap  Snapshots
	cache BookCache
	publ  Publisher
	ws    http.HandlerFunc
	OnOp  func(op string) // callback de métricas por operação
}

func NewServer(log *zap.Logger, eng *engine.Engine, snap Snapshots, cache BookCache, publ Publisher, wsHandler http.HandlerFunc) *Server {
	return &Server{log: log, eng: eng, snap: snap, cache: cache, publ: publ, ws: wsHandler}
}

// Router retorna o roteador HTTP com os endpoints REST
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/gambles", s.createGamble)
	r.Get("/v1/gambles", s.listGambles)
	r.Get("/v1/gambles/{id}", s.getGamble)
	r.Post("/v1/gambles/{id}/bets", s.placeBet)
	r.Get("/v1/gambles/{id}/bets", s.listBets)
	r.Get("/v1/gambles/{id}/orderbook", s.orderBook)
	r.Post("/v1/gambles/{id}/result", s.declareResult)
	r.Post("/v1/gambles/{id}/finish", s.finish)
	r.Get("/v1/bets/{id}", s.getBet)
	r.Post("/v1/bets/{id}/list", s.listBet)
	r.Post("/v1/bets/{id}/buy", s.buyBet)
	if s.ws != nil {
		r.Get("/ws", s.ws)
	}
	return r
}

func (s *Server) createGamble(w http.ResponseWriter, r *http.Request) {
	s.countOp("create_gamble")
	var req dto.CreateGambleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	g, err := s.eng.CreateGamble(r.Context(), req.Caller, req.Choices, req.TotalPrize, time.Unix(req.Deadline, 0))
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	s.persistGamble(r.Context(), g)
	s.publish(r.Context(), events.Wrap(events.TypeGambleCreated, g.ID, nil, events.GambleCreated{
		GambleID:   g.ID,
		Choices:    g.Choices,
		Owner:      g.Owner,
		TotalPrize: g.TotalPrize,
		Deadline:   g.Deadline.Unix(),
	}))
	writeJSON(w, http.StatusCreated, dto.FromGamble(g))
}

func (s *Server) listGambles(w http.ResponseWriter, r *http.Request) {
	gs := s.eng.Gambles()
	out := make([]dto.GambleResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, dto.FromGamble(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getGamble(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	g, err := s.eng.Gamble(id)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromGamble(g))
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	s.countOp("place_bet")
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	b, err := s.eng.PlaceBet(r.Context(), req.Caller, id, req.Amount, req.Choice)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	s.persistBet(r.Context(), b)
	if g, gerr := s.eng.Gamble(id); gerr == nil {
		s.persistGamble(r.Context(), g)
	}
	s.publish(r.Context(), events.Wrap(events.TypeBetPlaced, b.GambleID, &b.ID, events.BetPlaced{
		BetID:    b.ID,
		GambleID: b.GambleID,
		Owner:    b.Owner,
		Amount:   b.Amount,
		Choice:   b.Choice,
	}))
	writeJSON(w, http.StatusCreated, dto.FromBet(b))
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bs, err := s.eng.BetsForGamble(id)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, dto.FromBet(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// orderBook retorna as apostas listadas à venda, preferencialmente do cache
func (s *Server) orderBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if s.cache != nil {
		var cached dto.OrderBookResponse
		if ok, _ := s.cache.GetBook(r.Context(), id, &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	bs, err := s.eng.OrderBook(id)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	resp := dto.OrderBookResponse{GambleID: id, Listings: make([]dto.BetResponse, 0, len(bs))}
	for _, b := range bs {
		resp.Listings = append(resp.Listings, dto.FromBet(b))
	}
	if s.cache != nil {
		_ = s.cache.SetBook(r.Context(), id, resp, 10*time.Second)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) declareResult(w http.ResponseWriter, r *http.Request) {
	s.countOp("declare_result")
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dto.DeclareResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	g, err := s.eng.DeclareResult(req.Caller, id, req.WinningChoice)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	s.persistGamble(r.Context(), g)
	s.publish(r.Context(), events.Wrap(events.TypeResultDeclared, g.ID, nil, events.ResultDeclared{
		GambleID:      g.ID,
		WinningChoice: g.WinningChoice,
	}))
	writeJSON(w, http.StatusOK, dto.FromGamble(g))
}

func (s *Server) finish(w http.ResponseWriter, r *http.Request) {
	s.countOp("finish")
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dto.FinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	g, err := s.eng.Finish(r.Context(), req.Caller, id)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	s.persistGamble(r.Context(), g)
	s.publish(r.Context(), events.Wrap(events.TypeGambleFinished, g.ID, nil, events.GambleFinished{GambleID: g.ID}))
	writeJSON(w, http.StatusOK, dto.FromGamble(g))
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := s.eng.Bet(id)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(b))
}

func (s *Server) listBet(w http.ResponseWriter, r *http.Request) {
	s.countOp("list_bet")
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dto.ListBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	b, err := s.eng.ListBet(req.Caller, id, req.Price)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	s.persistBet(r.Context(), b)
	if s.cache != nil {
		_ = s.cache.InvalidateBook(r.Context(), b.GambleID)
	}
	s.publish(r.Context(), events.Wrap(events.TypeBetListed, b.GambleID, &b.ID, events.BetListed{
		BetID: b.ID,
		Price: b.ListPrice,
		Owner: b.Owner,
	}))
	writeJSON(w, http.StatusOK, dto.FromBet(b))
}

func (s *Server) buyBet(w http.ResponseWriter, r *http.Request) {
	s.countOp("buy_bet")
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dto.BuyBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	prior, _ := s.eng.Bet(id) // preço listado antes da compra, para o evento
	b, err := s.eng.BuyBet(r.Context(), req.Caller, id)
	if err != nil {
		s.writeEngineErr(w, err)
		return
	}
	s.persistBet(r.Context(), b)
	if s.cache != nil {
		_ = s.cache.InvalidateBook(r.Context(), b.GambleID)
	}
	s.publish(r.Context(), events.Wrap(events.TypeBetSold, b.GambleID, &b.ID, events.BetSold{
		BetID: b.ID,
		Price: prior.ListPrice,
		Buyer: b.Owner,
	}))
	writeJSON(w, http.StatusOK, dto.FromBet(b))
}

func (s *Server) persistGamble(ctx context.Context, g engine.Gamble) {
	if s.snap == nil {
		return
	}
	if err := s.snap.UpsertGamble(ctx, g); err != nil {
		s.log.Warn("gamble snapshot failed", zap.Int64("gamble_id", g.ID), zap.Error(err))
	}
}

func (s *Server) persistBet(ctx context.Context, b engine.Bet) {
	if s.snap == nil {
		return
	}
	if err := s.snap.UpsertBet(ctx, b); err != nil {
		s.log.Warn("bet snapshot failed", zap.Int64("bet_id", b.ID), zap.Error(err))
	}
}

func (s *Server) publish(ctx context.Context, env events.Envelope) {
	if s.publ == nil {
		return
	}
	if err := s.publ.Publish(ctx, env); err != nil {
		s.log.Warn("event publish failed", zap.String("type", env.Type), zap.Error(err))
	}
}

func (s *Server) countOp(op string) {
	if s.OnOp != nil {
		s.OnOp(op)
	}
}

// writeEngineErr mapeia os erros sentinela do engine para status HTTP
func (s *Server) writeEngineErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrTimingViolation), errors.Is(err, engine.ErrAlreadySettled):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrTransferFailed):
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
