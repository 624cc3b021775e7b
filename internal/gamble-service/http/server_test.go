package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/dto"
	"github.com/kitaikuyo123/EasyBet-blockchain/internal/gamble-service/engine"
	"github.com/kitaikuyo123/EasyBet-blockchain/pkg/contracts/events"
)

// stubLedger aceita tudo, ou falha tudo quando fail=true
type stubLedger struct{ fail bool }

func (s *stubLedger) Escrow(context.Context, string, decimal.Decimal) error { return s.err() }
func (s *stubLedger) Transfer(context.Context, string, string, decimal.Decimal) error {
	return s.err()
}
func (s *stubLedger) Payout(context.Context, []engine.Payment) error { return s.err() }
func (s *stubLedger) err() error {
	if s.fail {
		return fmt.Errorf("token transferfrom http 409")
	}
	return nil
}

// recorder captura eventos publicados e snapshots gravados
type recorder struct {
	envs    []events.Envelope
	gambles int
	bets    int
}

func (r *recorder) Publish(_ context.Context, env events.Envelope) error {
	r.envs = append(r.envs, env)
	return nil
}
func (r *recorder) UpsertGamble(context.Context, engine.Gamble) error { r.gambles++; return nil }
func (r *recorder) UpsertBet(context.Context, engine.Bet) error       { r.bets++; return nil }

func newTestServer(ledger engine.TokenLedger, now time.Time) (*httptest.Server, *recorder, func(time.Time)) {
	clock := now
	eng := engine.NewWithClock(ledger, func() time.Time { return clock })
	rec := &recorder{}
	s := NewServer(zap.NewNop(), eng, rec, nil, rec, nil)
	return httptest.NewServer(s.Router()), rec, func(t time.Time) { clock = t }
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestCreateGambleEndpoint(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts, rec, _ := newTestServer(&stubLedger{}, now)
	defer ts.Close()

	resp := post(t, ts.URL+"/v1/gambles", dto.CreateGambleRequest{
		Caller:     "alice",
		Choices:    []string{"home", "away"},
		TotalPrize: decimal.NewFromInt(10),
		Deadline:   now.Add(time.Hour).Unix(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	g := decodeBody[dto.GambleResponse](t, resp)
	if g.ID != 0 || g.Owner != "alice" || g.WinningChoice != -1 {
		t.Errorf("gamble = %+v", g)
	}
	if rec.gambles != 1 {
		t.Errorf("snapshots = %d, want 1", rec.gambles)
	}
	if len(rec.envs) != 1 || rec.envs[0].Type != events.TypeGambleCreated {
		t.Errorf("events = %+v", rec.envs)
	}
}

func TestCreateGambleBadRequests(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts, _, _ := newTestServer(&stubLedger{}, now)
	defer ts.Close()

	cases := []struct {
		name string
		req  dto.CreateGambleRequest
	}{
		{"sem caller", dto.CreateGambleRequest{Choices: []string{"a", "b"}, TotalPrize: decimal.NewFromInt(1), Deadline: now.Add(time.Hour).Unix()}},
		{"uma escolha só", dto.CreateGambleRequest{Caller: "a", Choices: []string{"a"}, TotalPrize: decimal.NewFromInt(1), Deadline: now.Add(time.Hour).Unix()}},
		{"prazo no passado", dto.CreateGambleRequest{Caller: "a", Choices: []string{"a", "b"}, TotalPrize: decimal.NewFromInt(1), Deadline: now.Add(-time.Hour).Unix()}},
		{"prêmio zero", dto.CreateGambleRequest{Caller: "a", Choices: []string{"a", "b"}, Deadline: now.Add(time.Hour).Unix()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/gambles", tc.req)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestEscrowFailureMapsToPaymentRequired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts, _, _ := newTestServer(&stubLedger{fail: true}, now)
	defer ts.Close()

	resp := post(t, ts.URL+"/v1/gambles", dto.CreateGambleRequest{
		Caller:     "alice",
		Choices:    []string{"home", "away"},
		TotalPrize: decimal.NewFromInt(10),
		Deadline:   now.Add(time.Hour).Unix(),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", resp.StatusCode)
	}
}

func TestGambleLifecycleOverHTTP(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts, rec, advance := newTestServer(&stubLedger{}, now)
	defer ts.Close()

	resp := post(t, ts.URL+"/v1/gambles", dto.CreateGambleRequest{
		Caller:     "owner",
		Choices:    []string{"home", "draw", "away"},
		TotalPrize: decimal.NewFromInt(10),
		Deadline:   now.Add(time.Hour).Unix(),
	})
	g := decodeBody[dto.GambleResponse](t, resp)

	resp = post(t, fmt.Sprintf("%s/v1/gambles/%d/bets", ts.URL, g.ID), dto.PlaceBetRequest{
		Caller: "p1", Amount: decimal.NewFromInt(5), Choice: 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place bet status = %d, want 201", resp.StatusCode)
	}
	b := decodeBody[dto.BetResponse](t, resp)
	if b.ID != 0 || b.GambleID != g.ID {
		t.Errorf("bet = %+v", b)
	}

	// resultado antes do prazo é recusado
	resp = post(t, fmt.Sprintf("%s/v1/gambles/%d/result", ts.URL, g.ID), dto.DeclareResultRequest{
		Caller: "owner", WinningChoice: 1,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("early result status = %d, want 409", resp.StatusCode)
	}

	advance(now.Add(2 * time.Hour))

	// só o dono declara
	resp = post(t, fmt.Sprintf("%s/v1/gambles/%d/result", ts.URL, g.ID), dto.DeclareResultRequest{
		Caller: "p1", WinningChoice: 1,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner result status = %d, want 403", resp.StatusCode)
	}

	resp = post(t, fmt.Sprintf("%s/v1/gambles/%d/result", ts.URL, g.ID), dto.DeclareResultRequest{
		Caller: "owner", WinningChoice: 1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = post(t, fmt.Sprintf("%s/v1/gambles/%d/finish", ts.URL, g.ID), dto.FinishRequest{Caller: "owner"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finish status = %d, want 200", resp.StatusCode)
	}
	fin := decodeBody[dto.GambleResponse](t, resp)
	if !fin.Finished {
		t.Errorf("finished = false, want true")
	}

	// finish repetido é recusado
	resp = post(t, fmt.Sprintf("%s/v1/gambles/%d/finish", ts.URL, g.ID), dto.FinishRequest{Caller: "owner"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double finish status = %d, want 409", resp.StatusCode)
	}

	wantTypes := []string{
		events.TypeGambleCreated,
		events.TypeBetPlaced,
		events.TypeResultDeclared,
		events.TypeGambleFinished,
	}
	if len(rec.envs) != len(wantTypes) {
		t.Fatalf("events = %d, want %d", len(rec.envs), len(wantTypes))
	}
	for i, want := range wantTypes {
		if rec.envs[i].Type != want {
			t.Errorf("event[%d] = %s, want %s", i, rec.envs[i].Type, want)
		}
	}
}

func TestResaleOverHTTP(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts, rec, _ := newTestServer(&stubLedger{}, now)
	defer ts.Close()

	resp := post(t, ts.URL+"/v1/gambles", dto.CreateGambleRequest{
		Caller:     "owner",
		Choices:    []string{"home", "away"},
		TotalPrize: decimal.NewFromInt(10),
		Deadline:   now.Add(time.Hour).Unix(),
	})
	g := decodeBody[dto.GambleResponse](t, resp)

	resp = post(t, fmt.Sprintf("%s/v1/gambles/%d/bets", ts.URL, g.ID), dto.PlaceBetRequest{
		Caller: "seller", Amount: decimal.NewFromInt(5), Choice: 0,
	})
	b := decodeBody[dto.BetResponse](t, resp)

	// só o dono da aposta lista
	resp = post(t, fmt.Sprintf("%s/v1/bets/%d/list", ts.URL, b.ID), dto.ListBetRequest{
		Caller: "buyer", Price: decimal.NewFromInt(8),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("list by stranger status = %d, want 403", resp.StatusCode)
	}

	resp = post(t, fmt.Sprintf("%s/v1/bets/%d/list", ts.URL, b.ID), dto.ListBetRequest{
		Caller: "seller", Price: decimal.NewFromInt(8),
	})
	listed := decodeBody[dto.BetResponse](t, resp)
	if !listed.Listed || !listed.ListPrice.Equal(decimal.NewFromInt(8)) {
		t.Errorf("listed = %+v", listed)
	}

	resp = post(t, fmt.Sprintf("%s/v1/bets/%d/buy", ts.URL, b.ID), dto.BuyBetRequest{Caller: "buyer"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("buy status = %d, want 200", resp.StatusCode)
	}
	sold := decodeBody[dto.BetResponse](t, resp)
	if sold.Owner != "buyer" || sold.Listed {
		t.Errorf("sold = %+v", sold)
	}

	// comprar aposta não listada
	resp = post(t, fmt.Sprintf("%s/v1/bets/%d/buy", ts.URL, b.ID), dto.BuyBetRequest{Caller: "other"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("buy unlisted status = %d, want 400", resp.StatusCode)
	}

	var soldEvent *events.Envelope
	for i := range rec.envs {
		if rec.envs[i].Type == events.TypeBetSold {
			soldEvent = &rec.envs[i]
		}
	}
	if soldEvent == nil {
		t.Fatalf("bet_sold event missing, got %+v", rec.envs)
	}
	var payload events.BetSold
	if err := json.Unmarshal(soldEvent.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Buyer != "buyer" || !payload.Price.Equal(decimal.NewFromInt(8)) {
		t.Errorf("bet_sold payload = %+v", payload)
	}
}

func TestOrderBookEndpoint(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts, _, _ := newTestServer(&stubLedger{}, now)
	defer ts.Close()

	resp := post(t, ts.URL+"/v1/gambles", dto.CreateGambleRequest{
		Caller:     "owner",
		Choices:    []string{"home", "away"},
		TotalPrize: decimal.NewFromInt(10),
		Deadline:   now.Add(time.Hour).Unix(),
	})
	g := decodeBody[dto.GambleResponse](t, resp)

	for i := 0; i < 2; i++ {
		resp = post(t, fmt.Sprintf("%s/v1/gambles/%d/bets", ts.URL, g.ID), dto.PlaceBetRequest{
			Caller: "p1", Amount: decimal.NewFromInt(3), Choice: 0,
		})
		resp.Body.Close()
	}
	resp = post(t, ts.URL+"/v1/bets/1/list", dto.ListBetRequest{Caller: "p1", Price: decimal.NewFromInt(4)})
	resp.Body.Close()

	getResp, err := http.Get(fmt.Sprintf("%s/v1/gambles/%d/orderbook", ts.URL, g.ID))
	if err != nil {
		t.Fatalf("get orderbook: %v", err)
	}
	book := decodeBody[dto.OrderBookResponse](t, getResp)
	if len(book.Listings) != 1 || book.Listings[0].ID != 1 {
		t.Errorf("orderbook = %+v", book)
	}

	// gamble inexistente
	getResp, err = http.Get(ts.URL + "/v1/gambles/99/orderbook")
	if err != nil {
		t.Fatalf("get orderbook: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", getResp.StatusCode)
	}
}
