package producer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/kitaikuyo123/EasyBet-blockchain/pkg/contracts/events"
)

// KafkaPublisher publica o envelope de eventos do mercado.
// A chave é o gamble id, garantindo ordem por mercado na partição.
type KafkaPublisher struct {
	Writer *kafka.Writer
	Topic  string
}

func NewKafkaPublisher(w *kafka.Writer, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env events.Envelope) error {
	b, _ := json.Marshal(env)
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(env.GambleID, 10)),
		Value: b,
	})
}
