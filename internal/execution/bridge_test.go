package execution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sevenms-engine/internal/market"
)

func TestBridgeSubmitOrder(t *testing.T) {
	var got orderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode order request: %v", err)
		}
		json.NewEncoder(w).Encode(orderResponse{Retcode: RetcodeDone, Order: 123456})
	}))
	defer server.Close()

	be := NewBridgeExecutor(BridgeExecutorOptions{BaseURL: server.URL}, zerolog.Nop())

	ticket, err := be.SubmitOrder(context.Background(), paperPlan(0.5))
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if ticket != "123456" {
		t.Errorf("expected ticket 123456, got %s", ticket)
	}

	if got.Symbol != "XAUUSD" || got.Side != "BUY_LIMIT" {
		t.Errorf("unexpected order request %+v", got)
	}
	if got.Volume != 0.5 || got.Price != 101 || got.StopLoss != 99.25 || got.TakeProfit != 104.5 {
		t.Errorf("unexpected order levels %+v", got)
	}
	if got.Magic != DefaultMagic {
		t.Errorf("expected magic %d, got %d", DefaultMagic, got.Magic)
	}
}

func TestBridgeSubmitBearishSide(t *testing.T) {
	var got orderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(orderResponse{Retcode: RetcodePlaced, Order: 7})
	}))
	defer server.Close()

	be := NewBridgeExecutor(BridgeExecutorOptions{BaseURL: server.URL}, zerolog.Nop())

	p := paperPlan(1)
	p.Direction = market.Bearish
	if _, err := be.SubmitOrder(context.Background(), p); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if got.Side != "SELL_LIMIT" {
		t.Errorf("expected SELL_LIMIT, got %s", got.Side)
	}
}

func TestBridgeSubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(orderResponse{Retcode: RetcodeNoMoney})
	}))
	defer server.Close()

	be := NewBridgeExecutor(BridgeExecutorOptions{BaseURL: server.URL}, zerolog.Nop())

	_, err := be.SubmitOrder(context.Background(), paperPlan(0.5))
	if !errors.Is(err, ErrExecutionFailure) {
		t.Fatalf("expected ErrExecutionFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "not enough money") {
		t.Errorf("expected retcode text in error, got %v", err)
	}
}

func TestBridgeClosePosition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/close" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Ticket string `json:"ticket"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Ticket != "123456" {
			t.Errorf("expected ticket 123456, got %s", req.Ticket)
		}
		json.NewEncoder(w).Encode(orderResponse{Retcode: RetcodeDone})
	}))
	defer server.Close()

	be := NewBridgeExecutor(BridgeExecutorOptions{BaseURL: server.URL}, zerolog.Nop())

	if err := be.ClosePosition(context.Background(), "123456"); err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
}

func TestBridgeAccountAndPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/account":
			json.NewEncoder(w).Encode(Account{Login: "101", Balance: 5000, Equity: 5100, Currency: "USD"})
		case "/positions":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"positions": []Position{{Ticket: "42", Symbol: "EURUSD", Direction: market.Bullish, Volume: 0.1}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	be := NewBridgeExecutor(BridgeExecutorOptions{BaseURL: server.URL}, zerolog.Nop())
	ctx := context.Background()

	acc, err := be.AccountInfo(ctx)
	if err != nil {
		t.Fatalf("AccountInfo: %v", err)
	}
	if acc.Equity != 5100 || acc.Login != "101" {
		t.Errorf("unexpected account %+v", acc)
	}

	positions, err := be.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(positions) != 1 || positions[0].Ticket != "42" {
		t.Errorf("unexpected positions %+v", positions)
	}
}

func TestBridgeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bridge offline", http.StatusBadGateway)
	}))
	defer server.Close()

	be := NewBridgeExecutor(BridgeExecutorOptions{BaseURL: server.URL}, zerolog.Nop())

	_, err := be.AccountInfo(context.Background())
	if !errors.Is(err, ErrExecutionFailure) {
		t.Fatalf("expected ErrExecutionFailure, got %v", err)
	}
}
