package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Payment é uma ordem de pagamento a partir da conta de custódia.
type Payment struct {
	To     string
	Amount decimal.Decimal
}

// TokenLedger é a fronteira com o asset ledger (token-service).
// Cada chamada é síncrona e tudo-ou-nada: se retornar erro, nenhum
// saldo foi movido e a operação do engine é abortada por inteiro.
type TokenLedger interface {
	// Escrow puxa fundos aprovados da conta para a custódia da plataforma.
	Escrow(ctx context.Context, from string, amount decimal.Decimal) error
	// Transfer puxa fundos aprovados de uma conta direto para outra
	// (pagamento de revenda: comprador -> vendedor, sem passar pela custódia).
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
	// Payout libera fundos em custódia para várias contas, tudo-ou-nada.
	Payout(ctx context.Context, payments []Payment) error
}

// Gamble é um mercado de apostas com opções enumeradas e deadline.
// Valores em unidades mínimas do token (18 casas decimais).
type Gamble struct {
	ID             int64
	Owner          string
	Choices        []string
	TotalPrize     decimal.Decimal
	Deadline       time.Time
	WinningChoice  int // -1 até o resultado ser declarado
	ResultDeclared bool
	Finished       bool
	BetIDs         []int64 // ordem de inserção
}

// Bet é um stake em custódia sobre uma opção de um gamble; o título
// (Owner) é revendável no marketplace, o stake (Amount) não se move.
type Bet struct {
	ID        int64
	GambleID  int64
	Owner     string
	Amount    decimal.Decimal
	Choice    int
	Listed    bool
	ListPrice decimal.Decimal
}

// Engine guarda todo o estado do núcleo: arenas densas de gambles e
// apostas indexadas pelo próprio id. Um único mutex serializa todas as
// operações, reproduzindo o modelo de autoridade única de um ledger
// compartilhado — nenhuma chamada observa efeito parcial de outra.
type Engine struct {
	mu      sync.Mutex
	token   TokenLedger
	now     func() time.Time
	gambles []*Gamble
	bets    []*Bet
}

func New(token TokenLedger) *Engine {
	return NewWithClock(token, time.Now)
}

// NewWithClock permite injetar o relógio (testes de deadline).
func NewWithClock(token TokenLedger, now func() time.Time) *Engine {
	return &Engine{token: token, now: now}
}

// CreateGamble valida os parâmetros, põe o prêmio em custódia e só
// então atribui o próximo id sequencial. Falha na cobrança do prêmio
// não consome id nem registra nada.
func (e *Engine) CreateGamble(ctx context.Context, owner string, choices []string, totalPrize decimal.Decimal, deadline time.Time) (Gamble, error) {
	if len(choices) < 2 {
		return Gamble{}, fmt.Errorf("%w: a gamble needs at least 2 choices", ErrInvalidArgument)
	}
	for i, c := range choices {
		if c == "" {
			return Gamble{}, fmt.Errorf("%w: empty label for choice %d", ErrInvalidArgument, i)
		}
	}
	if totalPrize.Sign() <= 0 {
		return Gamble{}, fmt.Errorf("%w: total prize must be positive", ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !deadline.After(e.now()) {
		return Gamble{}, fmt.Errorf("%w: deadline must be in the future", ErrInvalidArgument)
	}

	if err := e.token.Escrow(ctx, owner, totalPrize); err != nil {
		return Gamble{}, fmt.Errorf("%w: escrow prize: %v", ErrTransferFailed, err)
	}

	g := &Gamble{
		ID:            int64(len(e.gambles)),
		Owner:         owner,
		Choices:       append([]string(nil), choices...),
		TotalPrize:    totalPrize,
		Deadline:      deadline,
		WinningChoice: -1,
	}
	e.gambles = append(e.gambles, g)

	return snapshotGamble(g), nil
}

// PlaceBet põe o stake em custódia e registra a aposta com o próximo
// id sequencial global (contagem única atravessa todos os gambles).
func (e *Engine) PlaceBet(ctx context.Context, caller string, gambleID int64, amount decimal.Decimal, choice int) (Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.gambleLocked(gambleID)
	if err != nil {
		return Bet{}, err
	}
	if g.Finished {
		return Bet{}, fmt.Errorf("%w: gamble %d is finished", ErrAlreadySettled, gambleID)
	}
	if !e.now().Before(g.Deadline) {
		return Bet{}, fmt.Errorf("%w: betting closed for gamble %d", ErrTimingViolation, gambleID)
	}
	if amount.Sign() <= 0 {
		return Bet{}, fmt.Errorf("%w: bet amount must be positive", ErrInvalidArgument)
	}
	if choice < 0 || choice >= len(g.Choices) {
		return Bet{}, fmt.Errorf("%w: choice %d out of range (gamble %d has %d choices)", ErrInvalidArgument, choice, gambleID, len(g.Choices))
	}

	if err := e.token.Escrow(ctx, caller, amount); err != nil {
		return Bet{}, fmt.Errorf("%w: escrow stake: %v", ErrTransferFailed, err)
	}

	b := &Bet{
		ID:       int64(len(e.bets)),
		GambleID: gambleID,
		Owner:    caller,
		Amount:   amount,
		Choice:   choice,
	}
	e.bets = append(e.bets, b)
	g.BetIDs = append(g.BetIDs, b.ID)

	return snapshotBet(b), nil
}

// ListBet marca a aposta como à venda pelo preço dado. Re-listar uma
// aposta já listada apenas sobrescreve o preço.
func (e *Engine) ListBet(caller string, betID int64, price decimal.Decimal) (Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.betLocked(betID)
	if err != nil {
		return Bet{}, err
	}
	if b.Owner != caller {
		return Bet{}, fmt.Errorf("%w: only the owner can list bet %d", ErrUnauthorized, betID)
	}
	if e.gambles[b.GambleID].Finished {
		return Bet{}, fmt.Errorf("%w: gamble %d is finished", ErrAlreadySettled, b.GambleID)
	}
	if price.Sign() <= 0 {
		return Bet{}, fmt.Errorf("%w: list price must be positive", ErrInvalidArgument)
	}

	b.Listed = true
	b.ListPrice = price

	return snapshotBet(b), nil
}

// BuyBet transfere o título da aposta contra o pagamento do preço
// listado, que vai direto do comprador para o vendedor. O stake em
// custódia não se move — só o direito ao payout futuro.
func (e *Engine) BuyBet(ctx context.Context, caller string, betID int64) (Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.betLocked(betID)
	if err != nil {
		return Bet{}, err
	}
	if e.gambles[b.GambleID].Finished {
		return Bet{}, fmt.Errorf("%w: gamble %d is finished", ErrAlreadySettled, b.GambleID)
	}
	if !b.Listed {
		return Bet{}, fmt.Errorf("%w: bet %d is not listed", ErrInvalidArgument, betID)
	}
	if b.Owner == caller {
		return Bet{}, fmt.Errorf("%w: cannot buy own bet %d", ErrInvalidArgument, betID)
	}

	if err := e.token.Transfer(ctx, caller, b.Owner, b.ListPrice); err != nil {
		return Bet{}, fmt.Errorf("%w: pay seller: %v", ErrTransferFailed, err)
	}

	b.Owner = caller
	b.Listed = false

	return snapshotBet(b), nil
}

// DeclareResult fixa a opção vencedora. Só o dono, só após o deadline,
// e no máximo uma vez — irrevogável.
func (e *Engine) DeclareResult(caller string, gambleID int64, winningChoice int) (Gamble, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.gambleLocked(gambleID)
	if err != nil {
		return Gamble{}, err
	}
	if g.Owner != caller {
		return Gamble{}, fmt.Errorf("%w: only the owner can declare the result of gamble %d", ErrUnauthorized, gambleID)
	}
	if e.now().Before(g.Deadline) {
		return Gamble{}, fmt.Errorf("%w: gamble %d deadline not reached", ErrTimingViolation, gambleID)
	}
	if g.ResultDeclared {
		return Gamble{}, fmt.Errorf("%w: result of gamble %d already declared", ErrAlreadySettled, gambleID)
	}
	if winningChoice < 0 || winningChoice >= len(g.Choices) {
		return Gamble{}, fmt.Errorf("%w: winning choice %d out of range", ErrInvalidArgument, winningChoice)
	}

	g.WinningChoice = winningChoice
	g.ResultDeclared = true

	return snapshotGamble(g), nil
}

// Finish distribui o prêmio entre os donos ATUAIS das apostas
// vencedoras, proporcional ao stake de cada uma:
//
//	share = totalPrize * amount / soma(amounts vencedores)
//
// em aritmética inteira truncada; a sobra fica retida em custódia em
// vez de ir para algum vencedor arbitrário. Stakes perdedores são
// retidos. Com zero apostas vencedoras o gamble fecha com o prêmio
// inteiro retido — terminal válido, não é falha.
//
// Todas as shares são calculadas antes de qualquer transferência e o
// payout é um único lote tudo-ou-nada: não existe pagamento parcial.
func (e *Engine) Finish(ctx context.Context, caller string, gambleID int64) (Gamble, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.gambleLocked(gambleID)
	if err != nil {
		return Gamble{}, err
	}
	if g.Owner != caller {
		return Gamble{}, fmt.Errorf("%w: only the owner can finish gamble %d", ErrUnauthorized, gambleID)
	}
	if !g.ResultDeclared {
		return Gamble{}, fmt.Errorf("%w: result of gamble %d not declared yet", ErrTimingViolation, gambleID)
	}
	if g.Finished {
		return Gamble{}, fmt.Errorf("%w: gamble %d already finished", ErrAlreadySettled, gambleID)
	}

	winTotal := decimal.Zero
	for _, id := range g.BetIDs {
		if b := e.bets[id]; b.Choice == g.WinningChoice {
			winTotal = winTotal.Add(b.Amount)
		}
	}

	var payments []Payment
	if winTotal.Sign() > 0 {
		for _, id := range g.BetIDs {
			b := e.bets[id]
			if b.Choice != g.WinningChoice {
				continue
			}
			share, _ := g.TotalPrize.Mul(b.Amount).QuoRem(winTotal, 0)
			if share.Sign() > 0 {
				payments = append(payments, Payment{To: b.Owner, Amount: share})
			}
		}
	}

	if len(payments) > 0 {
		if err := e.token.Payout(ctx, payments); err != nil {
			return Gamble{}, fmt.Errorf("%w: payout: %v", ErrTransferFailed, err)
		}
	}

	g.Finished = true

	return snapshotGamble(g), nil
}

// Gamble retorna um snapshot do gamble pelo id.
func (e *Engine) Gamble(id int64) (Gamble, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.gambleLocked(id)
	if err != nil {
		return Gamble{}, err
	}
	return snapshotGamble(g), nil
}

// Gambles retorna snapshots de todos os gambles em ordem de criação.
func (e *Engine) Gambles() []Gamble {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Gamble, 0, len(e.gambles))
	for _, g := range e.gambles {
		out = append(out, snapshotGamble(g))
	}
	return out
}

// Bet retorna um snapshot da aposta pelo id.
func (e *Engine) Bet(id int64) (Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.betLocked(id)
	if err != nil {
		return Bet{}, err
	}
	return snapshotBet(b), nil
}

// BetsForGamble retorna as apostas de um gamble em ordem de inserção.
func (e *Engine) BetsForGamble(gambleID int64) ([]Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.gambleLocked(gambleID)
	if err != nil {
		return nil, err
	}
	out := make([]Bet, 0, len(g.BetIDs))
	for _, id := range g.BetIDs {
		out = append(out, snapshotBet(e.bets[id]))
	}
	return out, nil
}

// OrderBook retorna as apostas de um gamble atualmente à venda.
func (e *Engine) OrderBook(gambleID int64) ([]Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.gambleLocked(gambleID)
	if err != nil {
		return nil, err
	}
	out := []Bet{}
	for _, id := range g.BetIDs {
		if b := e.bets[id]; b.Listed {
			out = append(out, snapshotBet(b))
		}
	}
	return out, nil
}

func (e *Engine) GambleCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(len(e.gambles))
}

func (e *Engine) BetCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(len(e.bets))
}

// Restore recarrega os snapshots persistidos para dentro das arenas.
// Exige ids densos em ordem (0,1,2,...) e reconstrói a lista de
// apostas de cada gamble a partir da tabela de bets.
func (e *Engine) Restore(gambles []Gamble, bets []Bet) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.gambles) > 0 || len(e.bets) > 0 {
		return fmt.Errorf("restore: engine is not empty")
	}

	for i, g := range gambles {
		if g.ID != int64(i) {
			return fmt.Errorf("restore: gamble id %d at position %d", g.ID, i)
		}
		cp := g
		cp.Choices = append([]string(nil), g.Choices...)
		cp.BetIDs = nil
		e.gambles = append(e.gambles, &cp)
	}

	for i, b := range bets {
		if b.ID != int64(i) {
			return fmt.Errorf("restore: bet id %d at position %d", b.ID, i)
		}
		if b.GambleID < 0 || b.GambleID >= int64(len(e.gambles)) {
			return fmt.Errorf("restore: bet %d references unknown gamble %d", b.ID, b.GambleID)
		}
		cp := b
		e.bets = append(e.bets, &cp)
		g := e.gambles[b.GambleID]
		g.BetIDs = append(g.BetIDs, b.ID)
	}

	return nil
}

func (e *Engine) gambleLocked(id int64) (*Gamble, error) {
	if id < 0 || id >= int64(len(e.gambles)) {
		return nil, fmt.Errorf("%w: gamble %d", ErrNotFound, id)
	}
	return e.gambles[id], nil
}

func (e *Engine) betLocked(id int64) (*Bet, error) {
	if id < 0 || id >= int64(len(e.bets)) {
		return nil, fmt.Errorf("%w: bet %d", ErrNotFound, id)
	}
	return e.bets[id], nil
}

func snapshotGamble(g *Gamble) Gamble {
	cp := *g
	cp.Choices = append([]string(nil), g.Choices...)
	cp.BetIDs = append([]int64(nil), g.BetIDs...)
	return cp
}

func snapshotBet(b *Bet) Bet {
	return *b
}
