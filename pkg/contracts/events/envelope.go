package events

import (
	"encoding/json"
	"time"
)

// Tipos de evento publicados no tópico market_events
const (
	TypeGambleCreated  = "gamble_created"
	TypeBetPlaced      = "bet_placed"
	TypeBetListed      = "bet_listed"
	TypeBetSold        = "bet_sold"
	TypeResultDeclared = "result_declared"
	TypeGambleFinished = "gamble_finished"
)

// Envelope embala qualquer evento de mercado em um formato único,
// permitindo um só consumer para todo o ciclo de vida de um gamble.
// A chave da mensagem Kafka é o GambleID.
type Envelope struct {
	Type     string          `json:"type"`
	GambleID int64           `json:"gamble_id"`
	BetID    *int64          `json:"bet_id,omitempty"`
	TsUnixMs int64           `json:"ts_unix_ms"`
	Payload  json.RawMessage `json:"payload"`
}

// Wrap serializa o payload e monta o envelope com timestamp corrente.
func Wrap(typ string, gambleID int64, betID *int64, payload any) Envelope {
	b, _ := json.Marshal(payload)
	return Envelope{
		Type:     typ,
		GambleID: gambleID,
		BetID:    betID,
		TsUnixMs: time.Now().UnixMilli(),
		Payload:  b,
	}
}
