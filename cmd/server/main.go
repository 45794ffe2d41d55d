// Package main provides the escrow HTTP server: it hosts an in-process ledger,
// executes create-escrow instructions against it and serves the recorded
// escrows and attempts, plus health and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/pda"
	"token-escrow/internal/registry"
	"token-escrow/internal/runtime"
	"token-escrow/internal/snapshot"
	solanarpc "token-escrow/internal/solana"
	"token-escrow/internal/storage"
	chstore "token-escrow/internal/storage/clickhouse"
	"token-escrow/internal/storage/memory"
	"token-escrow/internal/storage/migrations"
	pgstore "token-escrow/internal/storage/postgres"
)

// stores holds the storage implementations.
type stores struct {
	escrows  storage.EscrowStore
	attempts storage.AttemptStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	programFlag := flag.String("program", envOr("ESCROW_PROGRAM_ID", solana.TokenMetadataProgramID.String()), "Token metadata program id")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint for accounts missing from the ledger")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	fixture := flag.String("fixture", "", "YAML fixture to seed the ledger with")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	programID, err := pda.Parse(*programFlag)
	if err != nil {
		logger.Fatalf("Invalid --program: %v", err)
	}

	ledger := runtime.NewLedger()
	if *fixture != "" {
		if ledger, err = snapshot.LoadFile(*fixture); err != nil {
			logger.Fatalf("Failed to load fixture: %v", err)
		}
		logger.Printf("Seeded ledger with %d accounts from %s", ledger.Len(), *fixture)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	var rpc solanarpc.RPCClient
	if *rpcEndpoint != "" {
		rpc = solanarpc.NewHTTPClient(*rpcEndpoint)
		logger.Printf("Fetching missing accounts from %s", *rpcEndpoint)
	}

	server := NewServer(programID, runtime.New(ledger),
		registry.NewService(st.escrows, st.attempts, registry.WithLogger(logger)),
		rpc, logger)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Graceful shutdown failed: %v", err)
		}
		cancel()
	}()

	logger.Printf("Starting HTTP server on %s (program %s)", *addr, programID)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	<-ctx.Done()
	logger.Println("Shutdown complete")
}

// createStores creates memory stores or connects to PostgreSQL and ClickHouse
// and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			escrows:  memory.NewEscrowStore(),
			attempts: memory.NewAttemptStore(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	st := &stores{
		escrows:  pgstore.NewEscrowStore(pool),
		attempts: chstore.NewAttemptStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return st, cleanup, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
