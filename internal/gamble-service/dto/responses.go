package dto

import (
	"github.com/shopspring/decimal"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/engine"
)

type GambleResponse struct {
	ID             int64           `json:"id"`
	Owner          string          `json:"owner"`
	Choices        []string        `json:"choices"`
	TotalPrize     decimal.Decimal `json:"total_prize"`
	Deadline       int64           `json:"deadline"`
	WinningChoice  int             `json:"winning_choice"` // -1 enquanto não declarado
	ResultDeclared bool            `json:"result_declared"`
	Finished       bool            `json:"finished"`
	BetIDs         []int64         `json:"bet_ids"`
}

type BetResponse struct {
	ID        int64           `json:"id"`
	GambleID  int64           `json:"gamble_id"`
	Owner     string          `json:"owner"`
	Amount    decimal.Decimal `json:"amount"`
	Choice    int             `json:"choice"`
	Listed    bool            `json:"listed"`
	ListPrice decimal.Decimal `json:"list_price"`
}

type OrderBookResponse struct {
	GambleID int64         `json:"gamble_id"`
	Listings []BetResponse `json:"listings"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// FromGamble converte o estado do engine para o payload da API
func FromGamble(g engine.Gamble) GambleResponse {
	return GambleResponse{
		ID:             g.ID,
		Owner:          g.Owner,
		Choices:        g.Choices,
		TotalPrize:     g.TotalPrize,
		Deadline:       g.Deadline.Unix(),
		WinningChoice:  g.WinningChoice,
		ResultDeclared: g.ResultDeclared,
		Finished:       g.Finished,
		BetIDs:         g.BetIDs,
	}
}

func FromBet(b engine.Bet) BetResponse {
	return BetResponse{
		ID:        b.ID,
		GambleID:  b.GambleID,
		Owner:     b.Owner,
		Amount:    b.Amount,
		Choice:    b.Choice,
		Listed:    b.Listed,
		ListPrice: b.ListPrice,
	}
}
