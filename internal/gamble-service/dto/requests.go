package dto

import "github.com/shopspring/decimal"

type CreateGambleRequest struct {
	Caller     string          `json:"caller"`
	Choices    []string        `json:"choices"`
	TotalPrize decimal.Decimal `json:"total_prize"`
	Deadline   int64           `json:"deadline"` // unix segundos
}

type PlaceBetRequest struct {
	Caller string          `json:"caller"`
	Amount decimal.Decimal `json:"amount"`
	Choice int             `json:"choice"` // índice em choices
}

type ListBetRequest struct {
	Caller string          `json:"caller"`
	Price  decimal.Decimal `json:"price"`
}

type BuyBetRequest struct {
	Caller string `json:"caller"`
}

type DeclareResultRequest struct {
	Caller        string `json:"caller"`
	WinningChoice int    `json:"winning_choice"`
}

type FinishRequest struct {
	Caller string `json:"caller"`
}
