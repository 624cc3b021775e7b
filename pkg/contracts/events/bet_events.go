package events

import "github.com/shopspring/decimal"

type BetPlaced struct {
	BetID    int64           `json:"bet_id"`
	GambleID int64           `json:"gamble_id"`
	Owner    string          `json:"owner"`
	Amount   decimal.Decimal `json:"amount"`
	Choice   int             `json:"choice"`
}

type BetListed struct {
	BetID int64           `json:"bet_id"`
	Price decimal.Decimal `json:"price"`
	Owner string          `json:"owner"`
}

// BetSold registra a venda de uma aposta no marketplace secundário.
// O valor vai direto do comprador para o vendedor; o stake continua em custódia.
type BetSold struct {
	BetID int64           `json:"bet_id"`
	Price decimal.Decimal `json:"price"`
	Buyer string          `json:"buyer"`
}
