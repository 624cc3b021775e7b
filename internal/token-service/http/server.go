package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/token-service/dto"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/token-service/repo"
)

// Repo define a interface do ledger de tokens usada pelo handler HTTP
type Repo interface {
	BalanceOf(ctx context.Context, account string) (decimal.Decimal, error)
	Allowance(ctx context.Context, owner, spender string) (decimal.Decimal, error)
	Faucet(ctx context.Context, account string) (decimal.Decimal, error)
	Approve(ctx context.Context, owner, spender string, amount decimal.Decimal) error
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, spender, from, to string, amount decimal.Decimal) error
	Payout(ctx context.Context, from string, payments []repo.Payment) error
}

// Server expõe endpoints HTTP do asset ledger (EasyToken)
type Server struct {
	log  *zap.Logger
	repo Repo
}

func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

// Router retorna o mux HTTP com as rotas da API do token
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token/balance", s.balance)           // GET ?account=...
	mux.HandleFunc("/token/allowance", s.allowance)       // GET ?owner=...&spender=...
	mux.HandleFunc("/token/faucet", s.faucet)             // POST
	mux.HandleFunc("/token/approve", s.approve)           // POST
	mux.HandleFunc("/token/transfer", s.transfer)         // POST
	mux.HandleFunc("/token/transferfrom", s.transferFrom) // POST
	mux.HandleFunc("/token/payout", s.payout)             // POST
	return mux
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		http.Error(w, "account required", http.StatusBadRequest)
		return
	}
	bal, err := s.repo.BalanceOf(r.Context(), account)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{Account: account, Balance: bal})
}

func (s *Server) allowance(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	spender := r.URL.Query().Get("spender")
	if owner == "" || spender == "" {
		http.Error(w, "owner and spender required", http.StatusBadRequest)
		return
	}
	amt, err := s.repo.Allowance(r.Context(), owner, spender)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.AllowanceResponse{Owner: owner, Spender: spender, Amount: amt})
}

// faucet credita a quantia fixa (100 tokens) na conta do chamador
func (s *Server) faucet(w http.ResponseWriter, r *http.Request) {
	var req dto.FaucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	bal, err := s.repo.Faucet(r.Context(), req.Account)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, dto.BalanceResponse{Account: req.Account, Balance: bal})
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	var req dto.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Owner == "" || req.Spender == "" || req.Amount.Sign() < 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.Approve(r.Context(), req.Owner, req.Spender, req.Amount); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"APPROVED"}`))
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.From == "" || req.To == "" || req.Amount.Sign() <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.Transfer(r.Context(), req.From, req.To, req.Amount); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"TRANSFERRED"}`))
}

func (s *Server) transferFrom(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferFromRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Spender == "" || req.From == "" || req.To == "" || req.Amount.Sign() <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.TransferFrom(r.Context(), req.Spender, req.From, req.To, req.Amount); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"TRANSFERRED"}`))
}

// payout é o desembolso em lote da liquidação: tudo-ou-nada
func (s *Server) payout(w http.ResponseWriter, r *http.Request) {
	var req dto.PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.From == "" || len(req.Payments) == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	payments := make([]repo.Payment, 0, len(req.Payments))
	for _, p := range req.Payments {
		if p.To == "" || p.Amount.Sign() <= 0 {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		payments = append(payments, repo.Payment{To: p.To, Amount: p.Amount})
	}
	if err := s.repo.Payout(r.Context(), req.From, payments); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"PAID"}`))
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds), errors.Is(err, repo.ErrInsufficientAllowance):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Error("token op failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
