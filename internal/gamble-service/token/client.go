package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/engine"
	tokendto "github.com/kitaikuyo123/EasyBet-blockchain/internal/token-service/dto"
)

// Client fala com o token-service e implementa engine.TokenLedger.
// Escrow move fundos do jogador para a conta de custódia da plataforma
// via allowance previamente aprovada (transferfrom).
type Client struct {
	BaseURL string
	Account string
	HTTP    *http.Client
}

func New(base, escrowAccount string) *Client {
	return &Client{
		BaseURL: base,
		Account: escrowAccount,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

var _ engine.TokenLedger = (*Client)(nil)

func (c *Client) Escrow(ctx context.Context, from string, amount decimal.Decimal) error {
	return c.post(ctx, "/token/transferfrom", tokendto.TransferFromRequest{
		Spender: c.Account,
		From:    from,
		To:      c.Account,
		Amount:  amount,
	})
}

func (c *Client) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	return c.post(ctx, "/token/transferfrom", tokendto.TransferFromRequest{
		Spender: c.Account,
		From:    from,
		To:      to,
		Amount:  amount,
	})
}

func (c *Client) Payout(ctx context.Context, payments []engine.Payment) error {
	items := make([]tokendto.PayoutItem, 0, len(payments))
	for _, p := range payments {
		items = append(items, tokendto.PayoutItem{To: p.To, Amount: p.Amount})
	}
	return c.post(ctx, "/token/payout", tokendto.PayoutRequest{From: c.Account, Payments: items})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("token %s http %d", path, res.StatusCode)
	}
	return nil
}
