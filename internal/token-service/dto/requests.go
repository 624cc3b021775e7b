package dto

import "github.com/shopspring/decimal"

type FaucetRequest struct {
	Account string `json:"account"`
}

type ApproveRequest struct {
	Owner   string          `json:"owner"`
	Spender string          `json:"spender"`
	Amount  decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// TransferFromRequest movimenta saldo de "from" mediante allowance
// concedida ao "spender" (a conta de custódia da plataforma).
type TransferFromRequest struct {
	Spender string          `json:"spender"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Amount  decimal.Decimal `json:"amount"`
}

type PayoutItem struct {
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// PayoutRequest debita uma conta e credita várias em uma única
// transação — ou tudo acontece, ou nada.
type PayoutRequest struct {
	From     string       `json:"from"`
	Payments []PayoutItem `json:"payments"`
}
