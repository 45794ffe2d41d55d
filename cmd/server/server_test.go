package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"token-escrow/internal/api"
	"token-escrow/internal/escrow"
	"token-escrow/internal/escrow/escrowtest"
	"token-escrow/internal/registry"
	"token-escrow/internal/runtime"
	solanarpc "token-escrow/internal/solana"
	"token-escrow/internal/solana/stub"
	"token-escrow/internal/state"
	"token-escrow/internal/storage/memory"
)

func newTestServer(t *testing.T, rt *runtime.Runtime, rpc solanarpc.RPCClient) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	svc := registry.NewService(memory.NewEscrowStore(), memory.NewAttemptStore())
	srv := NewServer(escrowtest.ProgramID, rt, svc, rpc, logger)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func worldRequest(w *escrowtest.World) api.CreateEscrowRequest {
	return api.CreateEscrowRequest{
		Mint:         w.Mint.String(),
		Payer:        w.Payer.String(),
		TokenAccount: w.TokenAccount.String(),
		Metadata:     w.Metadata.String(),
		Edition:      w.Edition.String(),
	}
}

func postJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, runtime.New(runtime.NewLedger()), nil)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

func TestDerive(t *testing.T) {
	w := escrowtest.New()
	ts := newTestServer(t, w.Runtime, nil)

	resp, err := http.Get(ts.URL + "/v1/escrow/derive?mint=" + w.Mint.String())
	if err != nil {
		t.Fatalf("GET derive: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out api.DeriveResponse
	decode(t, resp, &out)
	if out.Address != w.EscrowAddress(state.TokenOwner{}).String() {
		t.Errorf("address = %s", out.Address)
	}

	for _, q := range []string{"", "?mint=bad", "?mint=" + w.Mint.String() + "&authority=bad"} {
		resp, err := http.Get(ts.URL + "/v1/escrow/derive" + q)
		if err != nil {
			t.Fatalf("GET derive%s: %v", q, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("derive%s status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestInstructions(t *testing.T) {
	w := escrowtest.New()
	ts := newTestServer(t, w.Runtime, nil)

	resp := postJSON(t, ts.URL+"/v1/escrow/instructions", worldRequest(w))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out api.InstructionResponse
	decode(t, resp, &out)
	if out.Escrow != w.EscrowAddress(state.TokenOwner{}).String() {
		t.Errorf("escrow = %s", out.Escrow)
	}
	if len(out.Signers) != 1 || out.Signers[0] != w.Payer.String() {
		t.Errorf("signers = %v", out.Signers)
	}
}

func TestInstructions_BadRequest(t *testing.T) {
	ts := newTestServer(t, runtime.New(runtime.NewLedger()), nil)

	bodies := []string{
		`not json`,
		`{"mint":"x"}`,
		`{"mint":"11111111111111111111111111111111","payer":"11111111111111111111111111111111","extra":1}`,
	}
	for _, body := range bodies {
		resp, err := http.Post(ts.URL+"/v1/escrow/instructions", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestSimulate_CreateThenQuery(t *testing.T) {
	w := escrowtest.New()
	ts := newTestServer(t, w.Runtime, nil)
	addr := w.EscrowAddress(state.TokenOwner{}).String()

	resp := postJSON(t, ts.URL+"/v1/escrow/simulate", worldRequest(w))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var created api.Escrow
	decode(t, resp, &created)
	if created.Address != addr || created.Authority != "TOKEN_OWNER" {
		t.Errorf("unexpected escrow %+v", created)
	}

	resp, err := http.Get(ts.URL + "/v1/escrows/" + addr)
	if err != nil {
		t.Fatalf("GET escrow: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET escrow status = %d", resp.StatusCode)
	}
	var got api.Escrow
	decode(t, resp, &got)
	if got != created {
		t.Errorf("stored %+v, created %+v", got, created)
	}

	resp, err = http.Get(ts.URL + "/v1/escrows?mint=" + url.QueryEscape(w.Mint.String()))
	if err != nil {
		t.Fatalf("GET escrows: %v", err)
	}
	var list []api.Escrow
	decode(t, resp, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 escrow for mint, got %d", len(list))
	}

	// Second creation conflicts.
	resp = postJSON(t, ts.URL+"/v1/escrow/simulate", worldRequest(w))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second simulate status = %d, want 409", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/v1/attempts?mint=" + w.Mint.String())
	if err != nil {
		t.Fatalf("GET attempts: %v", err)
	}
	var attempts []api.Attempt
	decode(t, resp, &attempts)
	if len(attempts) != 2 || attempts[0].Outcome != "CREATED" || attempts[1].Outcome != "FAILED" {
		t.Errorf("unexpected attempts %+v", attempts)
	}

	resp, err = http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status StatusResponse
	decode(t, resp, &status)
	if status.Attempts["CREATED"] != 1 || status.Attempts["FAILED"] != 1 {
		t.Errorf("unexpected status counts %v", status.Attempts)
	}
	if status.LedgerAccounts != w.Ledger.Len() {
		t.Errorf("ledger accounts = %d, want %d", status.LedgerAccounts, w.Ledger.Len())
	}
}

func TestSimulate_Rejected(t *testing.T) {
	w := escrowtest.New(escrowtest.WithAmount(0))
	ts := newTestServer(t, w.Runtime, nil)

	resp := postJSON(t, ts.URL+"/v1/escrow/simulate", worldRequest(w))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	var out api.ErrorResponse
	decode(t, resp, &out)
	if out.Code == nil || *out.Code != escrow.ErrNotEnoughTokens.Code() {
		t.Errorf("unexpected error %+v", out)
	}
}

func TestGetEscrow_NotFound(t *testing.T) {
	ts := newTestServer(t, runtime.New(runtime.NewLedger()), nil)

	resp, err := http.Get(ts.URL + "/v1/escrows/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/v1/escrows")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("list without mint status = %d, want 400", resp.StatusCode)
	}
}

func TestSimulate_HydratesFromRPC(t *testing.T) {
	w := escrowtest.New()
	rpc := stub.NewRPCClient()
	rpc.SetFromLedger(w.Ledger)

	ledger := runtime.NewLedger()
	ts := newTestServer(t, runtime.New(ledger), rpc)

	resp := postJSON(t, ts.URL+"/v1/escrow/simulate", worldRequest(w))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if _, ok := ledger.Get(w.EscrowAddress(state.TokenOwner{})); !ok {
		t.Error("escrow not created on server ledger")
	}
}

func TestSimulate_RPCUnavailable(t *testing.T) {
	w := escrowtest.New()
	rpc := stub.NewRPCClient()
	rpc.Fail = true

	ts := newTestServer(t, runtime.New(runtime.NewLedger()), rpc)

	resp := postJSON(t, ts.URL+"/v1/escrow/simulate", worldRequest(w))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{escrow.ErrMintMismatch, http.StatusUnprocessableEntity},
		{runtime.ErrAccountAlreadyInUse, http.StatusConflict},
		{runtime.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
