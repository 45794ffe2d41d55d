// Package main provides the escrow command line tool:
// - derive: escrow address and bump for a mint and authority
// - build: create-escrow instruction as JSON
// - simulate: run the instruction against a fixture or live accounts
// - fetch: save the accounts an instruction touches as a fixture
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/api"
	"token-escrow/internal/pda"
)

// commands maps a command name to its implementation. Each command parses its
// own flags from args and writes its result to output.
var commands = map[string]func(input io.Reader, output io.Writer, args []string) error{
	"build":    cmdBuild,
	"derive":   cmdDerive,
	"fetch":    cmdFetch,
	"simulate": cmdSimulate,
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	if len(os.Args) == 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s <command> [<flags>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		os.Exit(2)
	}

	if err := run(os.Stdin, os.Stdout, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func availableCmds() []string {
	available := make([]string, 0, len(commands))
	for name := range commands {
		available = append(available, name)
	}
	sort.Strings(available)
	return available
}

// env returns the value of the environment variable or fallback if unset.
func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

func programFlag(fl *flag.FlagSet) *string {
	return fl.String("program", env("ESCROW_PROGRAM_ID", solana.TokenMetadataProgramID.String()),
		"Token metadata program id. ESCROW_PROGRAM_ID sets the default.")
}

func parseProgram(s string) (solana.PublicKey, error) {
	key, err := pda.Parse(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("program: %w", err)
	}
	return key, nil
}

// requestFlags binds the create-escrow account flags to a request.
func requestFlags(fl *flag.FlagSet) *api.CreateEscrowRequest {
	req := &api.CreateEscrowRequest{}
	fl.StringVar(&req.Mint, "mint", "", "Mint of the non-fungible token (required)")
	fl.StringVar(&req.Payer, "payer", "", "Fee payer and default creator (required)")
	fl.StringVar(&req.Owner, "owner", "", "Token holder. Defaults to the payer.")
	fl.StringVar(&req.TokenAccount, "token-account", "", "Holding account. Defaults to the owner's associated token account.")
	fl.StringVar(&req.Authority, "authority", "", "Explicit escrow authority. Must sign.")
	fl.StringVar(&req.Metadata, "metadata", "", "Metadata account. Derived from the mint by default.")
	fl.StringVar(&req.Edition, "edition", "", "Edition account. Derived from the mint by default.")
	return req
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
