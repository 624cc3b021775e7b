package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/token-service/dto"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/token-service/repo"
)

type fakeRepo struct {
	balances   map[string]decimal.Decimal
	allowances map[string]decimal.Decimal // chave "owner|spender"
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		balances:   map[string]decimal.Decimal{},
		allowances: map[string]decimal.Decimal{},
	}
}

func (f *fakeRepo) BalanceOf(_ context.Context, account string) (decimal.Decimal, error) {
	return f.balances[account], nil
}

func (f *fakeRepo) Allowance(_ context.Context, owner, spender string) (decimal.Decimal, error) {
	return f.allowances[owner+"|"+spender], nil
}

func (f *fakeRepo) Faucet(_ context.Context, account string) (decimal.Decimal, error) {
	f.balances[account] = f.balances[account].Add(repo.FaucetAmount)
	return f.balances[account], nil
}

func (f *fakeRepo) Approve(_ context.Context, owner, spender string, amount decimal.Decimal) error {
	f.allowances[owner+"|"+spender] = amount
	return nil
}

func (f *fakeRepo) Transfer(_ context.Context, from, to string, amount decimal.Decimal) error {
	if f.balances[from].LessThan(amount) {
		return fmt.Errorf("%w: conta %s", repo.ErrInsufficientFunds, from)
	}
	f.balances[from] = f.balances[from].Sub(amount)
	f.balances[to] = f.balances[to].Add(amount)
	return nil
}

func (f *fakeRepo) TransferFrom(_ context.Context, spender, from, to string, amount decimal.Decimal) error {
	key := from + "|" + spender
	if f.allowances[key].LessThan(amount) {
		return fmt.Errorf("%w: spender %s", repo.ErrInsufficientAllowance, spender)
	}
	if err := f.Transfer(nil, from, to, amount); err != nil {
		return err
	}
	f.allowances[key] = f.allowances[key].Sub(amount)
	return nil
}

func (f *fakeRepo) Payout(_ context.Context, from string, payments []repo.Payment) error {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	if f.balances[from].LessThan(total) {
		return fmt.Errorf("%w: conta %s", repo.ErrInsufficientFunds, from)
	}
	f.balances[from] = f.balances[from].Sub(total)
	for _, p := range payments {
		f.balances[p.To] = f.balances[p.To].Add(p.Amount)
	}
	return nil
}

func testServer() (*httptest.Server, *fakeRepo) {
	r := newFakeRepo()
	s := NewServer(zap.NewNop(), r)
	return httptest.NewServer(s.Router()), r
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestFaucetAndBalance(t *testing.T) {
	ts, _ := testServer()
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/token/faucet", dto.FaucetRequest{Account: "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("faucet status = %d, want 200", resp.StatusCode)
	}
	var bal dto.BalanceResponse
	_ = json.NewDecoder(resp.Body).Decode(&bal)
	resp.Body.Close()
	if !bal.Balance.Equal(repo.FaucetAmount) {
		t.Errorf("balance = %s, want %s", bal.Balance, repo.FaucetAmount)
	}

	getResp, err := http.Get(ts.URL + "/token/balance?account=alice")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	defer getResp.Body.Close()
	var got dto.BalanceResponse
	_ = json.NewDecoder(getResp.Body).Decode(&got)
	if !got.Balance.Equal(repo.FaucetAmount) {
		t.Errorf("balance after faucet = %s, want %s", got.Balance, repo.FaucetAmount)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	ts, _ := testServer()
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/token/transfer", dto.TransferRequest{
		From: "alice", To: "bob", Amount: decimal.NewFromInt(5),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("transfer status = %d, want 409", resp.StatusCode)
	}
}

func TestTransferFromRequiresAllowance(t *testing.T) {
	ts, r := testServer()
	defer ts.Close()

	r.balances["alice"] = decimal.NewFromInt(50)

	resp := postJSON(t, ts.URL+"/token/transferfrom", dto.TransferFromRequest{
		Spender: "platform", From: "alice", To: "escrow", Amount: decimal.NewFromInt(10),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("transferfrom without allowance status = %d, want 409", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/token/approve", dto.ApproveRequest{
		Owner: "alice", Spender: "platform", Amount: decimal.NewFromInt(30),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/token/transferfrom", dto.TransferFromRequest{
		Spender: "platform", From: "alice", To: "escrow", Amount: decimal.NewFromInt(10),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("transferfrom with allowance status = %d, want 200", resp.StatusCode)
	}
	if !r.balances["escrow"].Equal(decimal.NewFromInt(10)) {
		t.Errorf("escrow balance = %s, want 10", r.balances["escrow"])
	}
	if !r.allowances["alice|platform"].Equal(decimal.NewFromInt(20)) {
		t.Errorf("allowance = %s, want 20", r.allowances["alice|platform"])
	}
}

func TestPayoutBatch(t *testing.T) {
	ts, r := testServer()
	defer ts.Close()

	r.balances["escrow"] = decimal.NewFromInt(10)

	resp := postJSON(t, ts.URL+"/token/payout", dto.PayoutRequest{
		From: "escrow",
		Payments: []dto.PayoutItem{
			{To: "p1", Amount: decimal.NewFromInt(3)},
			{To: "p2", Amount: decimal.NewFromInt(6)},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("payout status = %d, want 200", resp.StatusCode)
	}
	if !r.balances["escrow"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("escrow remainder = %s, want 1", r.balances["escrow"])
	}
	if !r.balances["p1"].Equal(decimal.NewFromInt(3)) || !r.balances["p2"].Equal(decimal.NewFromInt(6)) {
		t.Errorf("payout balances = %s/%s, want 3/6", r.balances["p1"], r.balances["p2"])
	}
}

func TestPayoutAllOrNothing(t *testing.T) {
	ts, r := testServer()
	defer ts.Close()

	r.balances["escrow"] = decimal.NewFromInt(5)

	resp := postJSON(t, ts.URL+"/token/payout", dto.PayoutRequest{
		From: "escrow",
		Payments: []dto.PayoutItem{
			{To: "p1", Amount: decimal.NewFromInt(3)},
			{To: "p2", Amount: decimal.NewFromInt(6)},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("payout status = %d, want 409", resp.StatusCode)
	}
	if !r.balances["escrow"].Equal(decimal.NewFromInt(5)) {
		t.Errorf("escrow balance = %s, want untouched 5", r.balances["escrow"])
	}
	if !r.balances["p1"].IsZero() {
		t.Errorf("p1 balance = %s, want 0", r.balances["p1"])
	}
}

func TestBadPayloads(t *testing.T) {
	ts, _ := testServer()
	defer ts.Close()

	cases := []struct {
		name string
		path string
		body any
	}{
		{"faucet sem conta", "/token/faucet", dto.FaucetRequest{}},
		{"transfer valor zero", "/token/transfer", dto.TransferRequest{From: "a", To: "b"}},
		{"payout vazio", "/token/payout", dto.PayoutRequest{From: "escrow"}},
		{"approve negativo", "/token/approve", dto.ApproveRequest{Owner: "a", Spender: "b", Amount: decimal.NewFromInt(-1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+tc.path, tc.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}
