package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// GambleID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type     string `json:"type"`     // subscribe | unsubscribe | ping
	GambleID int64  `json:"gambleId"` // requerido em subscribe/unsubscribe
}

// MarketUpdate representa um evento de mercado repassado aos clientes WebSocket
type MarketUpdate struct {
	GambleID int64       `json:"gambleId"`
	Type     string      `json:"type"` // gamble_created | bet_placed | bet_listed | bet_sold | result_declared | gamble_finished
	Payload  interface{} `json:"payload"`
}
