package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/market-worker/repository"
	"github.com/kitaikuyo123/EasyBet-blockchain/pkg/contracts/events"
)

// Processor consome o tópico market_events, persiste o histórico e
// repassa os eventos para broadcast. Mensagens inválidas ou que falham
// repetidamente vão para a DLQ em vez de travar a partição.
type Processor struct {
	Log       *zap.Logger
	Reader    *kafka.Reader
	Repo      *repository.PostgresRepo
	DLQWriter *kafka.Writer // opcional

	OnConsumed func()       // métricas (counter++)
	OnPersist  func()       // métricas
	OnError    func(string) // métricas por fase

	// Após persistir, repassa o evento para o canal de broadcast (ws)
	OnAfterPersist func(env events.Envelope)
}

const maxPersistAttempts = 3

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var env events.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil || env.Type == "" {
			p.Log.Warn("invalid message", zap.Error(err))
			if p.OnError != nil {
				p.OnError("decode")
			}
			p.toDLQ(ctx, m)
			continue
		}

		// Retry simples antes de mandar para a DLQ
		var perr error
		for attempt := 1; attempt <= maxPersistAttempts; attempt++ {
			if perr = p.Repo.InsertHistory(ctx, env); perr == nil {
				break
			}
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
		}
		if perr != nil {
			p.Log.Warn("db insert history failed", zap.String("type", env.Type), zap.Error(perr))
			if p.OnError != nil {
				p.OnError("db_history")
			}
			p.toDLQ(ctx, m)
			continue
		}
		if p.OnPersist != nil {
			p.OnPersist()
		}

		if p.OnAfterPersist != nil {
			p.OnAfterPersist(env)
		}
	}
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message) {
	if p.DLQWriter == nil {
		return
	}
	if err := p.DLQWriter.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value}); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		if p.OnError != nil {
			p.OnError("dlq")
		}
	}
}
