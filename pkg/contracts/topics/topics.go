package topics

const (
	// Ciclo de vida de gambles, apostas e marketplace (envelope único)
	MarketEvents = "market_events"

	// DLQ
	MarketEventsDLQ = "market_events_dlq"
)
