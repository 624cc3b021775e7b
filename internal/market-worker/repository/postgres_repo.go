package repository

import (
	"context"
	"database/sql"

	"github.com/kitaikuyo123/EasyBet-blockchain/pkg/contracts/events"
)

// PostgresRepo grava o histórico de eventos de mercado (market_history)
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// InsertHistory insere um evento consumido no histórico append-only
func (r *PostgresRepo) InsertHistory(ctx context.Context, env events.Envelope) error {
	const q = `
		INSERT INTO market_history (event_type, gamble_id, bet_id, ts_unix_ms, payload)
		VALUES ($1,$2,$3,$4,$5)
	`
	var betID any
	if env.BetID != nil {
		betID = *env.BetID
	}
	_, err := r.DB.ExecContext(ctx, q, env.Type, env.GambleID, betID, env.TsUnixMs, []byte(env.Payload))
	return err
}
