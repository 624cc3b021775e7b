package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/engine"
)

// Postgres persiste snapshots do estado do engine. O engine em memória
// é a autoridade; o banco serve para reidratar o estado no boot.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// UpsertGamble grava (ou atualiza) o snapshot de um gamble
func (p *Postgres) UpsertGamble(ctx context.Context, g engine.Gamble) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO gambles (id,owner,choices,total_prize,deadline,winning_choice,result_declared,finished)
		VALUES ($1,$2,$3,$4,to_timestamp($5),$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			winning_choice=EXCLUDED.winning_choice,
			result_declared=EXCLUDED.result_declared,
			finished=EXCLUDED.finished`,
		g.ID, g.Owner, pq.Array(g.Choices), g.TotalPrize.String(), g.Deadline.Unix(),
		g.WinningChoice, g.ResultDeclared, g.Finished,
	)
	return err
}

// UpsertBet grava (ou atualiza) o snapshot de uma aposta
func (p *Postgres) UpsertBet(ctx context.Context, b engine.Bet) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id,gamble_id,owner,amount,choice,listed,list_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			owner=EXCLUDED.owner,
			listed=EXCLUDED.listed,
			list_price=EXCLUDED.list_price`,
		b.ID, b.GambleID, b.Owner, b.Amount.String(), b.Choice, b.Listed, b.ListPrice.String(),
	)
	return err
}

// LoadGambles carrega todos os gambles em ordem de id para o Restore
func (p *Postgres) LoadGambles(ctx context.Context) ([]engine.Gamble, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id,owner,choices,total_prize,extract(epoch from deadline)::bigint,
		       winning_choice,result_declared,finished
		FROM gambles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Gamble
	for rows.Next() {
		var g engine.Gamble
		var prize string
		var deadline int64
		if err := rows.Scan(&g.ID, &g.Owner, pq.Array(&g.Choices), &prize, &deadline,
			&g.WinningChoice, &g.ResultDeclared, &g.Finished); err != nil {
			return nil, err
		}
		g.TotalPrize, err = decimal.NewFromString(prize)
		if err != nil {
			return nil, err
		}
		g.Deadline = time.Unix(deadline, 0)
		out = append(out, g)
	}
	return out, rows.Err()
}

// LoadBets carrega todas as apostas em ordem de id para o Restore
func (p *Postgres) LoadBets(ctx context.Context) ([]engine.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id,gamble_id,owner,amount,choice,listed,list_price
		FROM bets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Bet
	for rows.Next() {
		var b engine.Bet
		var amount, price string
		if err := rows.Scan(&b.ID, &b.GambleID, &b.Owner, &amount, &b.Choice, &b.Listed, &price); err != nil {
			return nil, err
		}
		b.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		b.ListPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
