package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FaucetAmount: 100 tokens de 18 casas decimais, em unidades mínimas.
var FaucetAmount = decimal.New(100, 18)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotFound              = errors.New("not found")
)

type Payment struct {
	To     string
	Amount decimal.Decimal
}

// Postgres implementa o ledger do token (saldos + allowances) em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// BalanceOf retorna o saldo da conta; conta desconhecida tem saldo zero
func (p *Postgres) BalanceOf(ctx context.Context, account string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := p.db.QueryRowContext(ctx, `SELECT balance FROM token_accounts WHERE account=$1`, account).Scan(&bal)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return bal, nil
}

// Allowance retorna o limite aprovado de owner para spender
func (p *Postgres) Allowance(ctx context.Context, owner, spender string) (decimal.Decimal, error) {
	var amt decimal.Decimal
	err := p.db.QueryRowContext(ctx,
		`SELECT amount FROM token_allowances WHERE owner=$1 AND spender=$2`, owner, spender).Scan(&amt)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return amt, nil
}

// Faucet credita a quantia fixa na conta do chamador e registra no ledger
func (p *Postgres) Faucet(ctx context.Context, account string) (decimal.Decimal, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	if err := ensureAccount(ctx, tx, account); err != nil {
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	if err = tx.QueryRowContext(ctx,
		`UPDATE token_accounts SET balance = balance + $1, version = version + 1 WHERE account=$2 RETURNING balance`,
		FaucetAmount, account).Scan(&newBalance); err != nil {
		return decimal.Zero, err
	}

	if err = insertLedger(ctx, tx, account, "MINT", FaucetAmount, "faucet"); err != nil {
		return decimal.Zero, err
	}

	if err = tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Approve define (sobrescreve) o limite aprovado de owner para spender
func (p *Postgres) Approve(ctx context.Context, owner, spender string, amount decimal.Decimal) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO token_allowances (owner, spender, amount)
		VALUES ($1,$2,$3)
		ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
		owner, spender, amount)
	return err
}

// Transfer move saldo direto entre duas contas
// Garante lock pessimista na linha de origem
func (p *Postgres) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = debit(ctx, tx, from, amount); err != nil {
		return err
	}
	if err = credit(ctx, tx, to, amount); err != nil {
		return err
	}

	if err = insertLedger(ctx, tx, from, "DEBIT", amount, "transfer to "+to); err != nil {
		return err
	}
	if err = insertLedger(ctx, tx, to, "CREDIT", amount, "transfer from "+from); err != nil {
		return err
	}

	return tx.Commit()
}

// TransferFrom move saldo de "from" consumindo a allowance concedida ao
// spender, tudo na mesma transação
func (p *Postgres) TransferFrom(ctx context.Context, spender, from, to string, amount decimal.Decimal) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var allowed decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT amount FROM token_allowances WHERE owner=$1 AND spender=$2 FOR UPDATE`,
		from, spender).Scan(&allowed)
	if err == sql.ErrNoRows || (err == nil && allowed.Cmp(amount) < 0) {
		return ErrInsufficientAllowance
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE token_allowances SET amount = amount - $1 WHERE owner=$2 AND spender=$3`,
		amount, from, spender); err != nil {
		return err
	}

	if err = debit(ctx, tx, from, amount); err != nil {
		return err
	}
	if err = credit(ctx, tx, to, amount); err != nil {
		return err
	}

	if err = insertLedger(ctx, tx, from, "DEBIT", amount, "transferFrom by "+spender+" to "+to); err != nil {
		return err
	}
	if err = insertLedger(ctx, tx, to, "CREDIT", amount, "transferFrom by "+spender+" from "+from); err != nil {
		return err
	}

	return tx.Commit()
}

// Payout debita a conta de origem e credita todos os destinos em uma
// única transação. Saldo insuficiente para o total aborta tudo.
func (p *Postgres) Payout(ctx context.Context, from string, payments []Payment) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	total := decimal.Zero
	for _, pay := range payments {
		total = total.Add(pay.Amount)
	}

	if err = debit(ctx, tx, from, total); err != nil {
		return err
	}
	if err = insertLedger(ctx, tx, from, "DEBIT", total, "payout"); err != nil {
		return err
	}

	for _, pay := range payments {
		if err = credit(ctx, tx, pay.To, pay.Amount); err != nil {
			return err
		}
		if err = insertLedger(ctx, tx, pay.To, "CREDIT", pay.Amount, "payout from "+from); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func ensureAccount(ctx context.Context, tx *sql.Tx, account string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO token_accounts (account, balance, version)
		VALUES ($1, 0, 1)
		ON CONFLICT (account) DO NOTHING`, account)
	return err
}

func debit(ctx context.Context, tx *sql.Tx, account string, amount decimal.Decimal) error {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM token_accounts WHERE account=$1 FOR UPDATE`, account).Scan(&balance)
	if err == sql.ErrNoRows {
		return ErrInsufficientFunds
	}
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance - $1, version = version + 1 WHERE account=$2`,
		amount, account)
	return err
}

func credit(ctx context.Context, tx *sql.Tx, account string, amount decimal.Decimal) error {
	if err := ensureAccount(ctx, tx, account); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance + $1, version = version + 1 WHERE account=$2`,
		amount, account)
	return err
}

func insertLedger(ctx context.Context, tx *sql.Tx, account, op string, amount decimal.Decimal, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO token_ledger (id, account, operation_type, amount, description, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())`,
		uuid.NewString(), account, op, amount, description)
	return err
}
