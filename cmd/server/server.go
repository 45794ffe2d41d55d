package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/api"
	"token-escrow/internal/escrow"
	"token-escrow/internal/observability"
	"token-escrow/internal/pda"
	"token-escrow/internal/registry"
	"token-escrow/internal/runtime"
	"token-escrow/internal/snapshot"
	solanarpc "token-escrow/internal/solana"
	"token-escrow/internal/storage"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 16

// Server serves the escrow API over one ledger.
type Server struct {
	programID solana.PublicKey
	runtime   *runtime.Runtime
	service   *registry.Service
	rpc       solanarpc.RPCClient // nil disables hydration
	logger    *log.Logger
	started   time.Time
}

// NewServer creates a server. rpc may be nil.
func NewServer(programID solana.PublicKey, rt *runtime.Runtime, service *registry.Service, rpc solanarpc.RPCClient, logger *log.Logger) *Server {
	return &Server{
		programID: programID,
		runtime:   rt,
		service:   service,
		rpc:       rpc,
		logger:    logger,
		started:   time.Now(),
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /v1/escrow/derive", s.handleDerive)
	mux.HandleFunc("POST /v1/escrow/instructions", s.handleInstructions)
	mux.HandleFunc("POST /v1/escrow/simulate", s.handleSimulate)
	mux.HandleFunc("GET /v1/escrows/{address}", s.handleGetEscrow)
	mux.HandleFunc("GET /v1/escrows", s.handleListEscrows)
	mux.HandleFunc("GET /v1/attempts", s.handleListAttempts)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status         string            `json:"status"`
	Uptime         string            `json:"uptime"`
	ProgramID      string            `json:"program_id"`
	LedgerAccounts int               `json:"ledger_accounts"`
	Attempts       map[string]uint64 `json:"attempts"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.Outcomes(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		ProgramID:      s.programID.String(),
		LedgerAccounts: s.runtime.Ledger().Len(),
		Attempts:       make(map[string]uint64, len(counts)),
	}
	for outcome, n := range counts {
		resp.Attempts[outcome.String()] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("mint") == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("mint is required"))
		return
	}
	mint, err := pda.Parse(q.Get("mint"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	authority, err := api.ParseAuthority(q.Get("authority"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := api.NewDeriveResponse(s.programID, mint, authority)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInstructions(w http.ResponseWriter, r *http.Request) {
	res, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := api.NewInstructionResponse(res)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSimulate executes the instruction on the server ledger. The payer
// and authority are treated as having signed.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	ix := res.Instruction()

	if s.rpc != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		added, err := snapshot.Hydrate(ctx, s.rpc, s.runtime.Ledger(), snapshot.InstructionAccounts(ix))
		cancel()
		if err != nil {
			s.writeError(w, http.StatusBadGateway, err)
			return
		}
		if added > 0 {
			s.logger.Printf("Hydrated %d accounts for escrow %s", added, res.Escrow)
		}
	}

	rec, err := s.service.CreateEscrow(r.Context(), s.runtime, ix, res.Signers())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, api.NewEscrow(rec))
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Escrow(r.Context(), r.PathValue("address"))
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewEscrow(rec))
}

func (s *Server) handleListEscrows(w http.ResponseWriter, r *http.Request) {
	mint := r.URL.Query().Get("mint")
	if mint == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("mint is required"))
		return
	}

	recs, err := s.service.EscrowsByMint(r.Context(), mint)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]*api.Escrow, 0, len(recs))
	for _, rec := range recs {
		out = append(out, api.NewEscrow(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	mint := r.URL.Query().Get("mint")
	if mint == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("mint is required"))
		return
	}

	attempts, err := s.service.Attempts(r.Context(), mint)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]*api.Attempt, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, api.NewAttempt(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeRequest reads and resolves a create-escrow request body. On failure
// it writes the response and returns false.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (*api.Resolved, bool) {
	var req api.CreateEscrowRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}

	res, err := req.Resolve(s.programID)
	if err != nil {
		status := http.StatusInternalServerError
		if api.IsInvalidRequest(err) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return nil, false
	}
	return res, true
}

// statusFor maps an execution error to an HTTP status.
func statusFor(err error) int {
	if _, ok := escrow.CodeOf(err); ok {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, runtime.ErrAccountAlreadyInUse), errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, runtime.ErrInsufficientFunds),
		errors.Is(err, runtime.ErrMissingRequiredSignature),
		errors.Is(err, runtime.ErrInvalidSignerSeeds),
		errors.Is(err, runtime.ErrIncorrectProgramID),
		errors.Is(err, runtime.ErrAccountNotWritable),
		errors.Is(err, runtime.ErrUnbalancedInstruction),
		errors.Is(err, runtime.ErrInvalidAccountDataLength),
		errors.Is(err, runtime.ErrInvalidInstructionData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Printf("HTTP %d: %v", status, err)
	}
	writeJSON(w, status, api.NewErrorResponse(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

