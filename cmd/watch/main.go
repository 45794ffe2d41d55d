// Package main watches a derived escrow address over WebSocket and exits
// once an initialized token-owned escrow appears there.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/api"
	"token-escrow/internal/escrow"
	"token-escrow/internal/pda"
	solanarpc "token-escrow/internal/solana"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint for the initial check (optional)")
	programFlag := flag.String("program", envOr("ESCROW_PROGRAM_ID", solana.TokenMetadataProgramID.String()), "Token metadata program id")
	mintFlag := flag.String("mint", "", "Mint of the token (required)")
	authorityFlag := flag.String("authority", "", "Creator controlling the escrow; empty for the token owner")
	timeout := flag.Duration("timeout", 0, "Give up after this long (0 waits forever)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[watch] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if *mintFlag == "" {
		logger.Fatal("--mint is required")
	}
	programID, err := pda.Parse(*programFlag)
	if err != nil {
		logger.Fatalf("Invalid --program: %v", err)
	}
	mint, err := pda.Parse(*mintFlag)
	if err != nil {
		logger.Fatalf("Invalid --mint: %v", err)
	}
	authority, err := api.ParseAuthority(*authorityFlag)
	if err != nil {
		logger.Fatalf("Invalid --authority: %v", err)
	}

	address, _, err := escrow.DeriveEscrowAddress(programID, mint, authority)
	if err != nil {
		logger.Fatalf("Derive escrow address: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, *timeout)
		defer cancelTimeout()
	}

	wsConfig := solanarpc.DefaultWSConfig()
	wsConfig.Logger = logger
	ws, err := solanarpc.NewWSClient(ctx, *wsEndpoint, &wsConfig)
	if err != nil {
		logger.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer ws.Close()

	var rpc solanarpc.RPCClient
	if *rpcEndpoint != "" {
		rpc = solanarpc.NewHTTPClient(*rpcEndpoint)
	}

	logger.Printf("Watching escrow %s (mint %s, %s)", address, mint, authority)
	found, err := NewWatcher(programID, rpc, ws, logger).Wait(ctx, address)
	if err != nil {
		logger.Fatalf("Watch failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(found); err != nil {
		logger.Fatalf("Encode result: %v", err)
	}
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
