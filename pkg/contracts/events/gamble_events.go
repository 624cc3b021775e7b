package events

import "github.com/shopspring/decimal"

// Evento emitido quando um gamble é criado (prêmio já em custódia).
type GambleCreated struct {
	GambleID   int64           `json:"gamble_id"`
	Choices    []string        `json:"choices"`
	Owner      string          `json:"owner"`
	TotalPrize decimal.Decimal `json:"total_prize"`
	Deadline   int64           `json:"deadline"` // unix segundos
}

// Evento emitido quando o dono declara o resultado.
type ResultDeclared struct {
	GambleID      int64 `json:"gamble_id"`
	WinningChoice int   `json:"winning_choice"`
}

// Evento emitido quando a distribuição do prêmio é concluída.
type GambleFinished struct {
	GambleID int64 `json:"gamble_id"`
}
