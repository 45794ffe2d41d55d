package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"token-escrow/internal/api"
	"token-escrow/internal/registry"
	"token-escrow/internal/runtime"
	"token-escrow/internal/snapshot"
	solanarpc "token-escrow/internal/solana"
	"token-escrow/internal/storage/memory"
)

func cmdSimulate(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprint(fl.Output(), `
Execute a create-escrow instruction against a ledger and print the created
escrow, or the program error. The ledger comes from a fixture file or from the
current state of the instruction's accounts over RPC.

`)
		fl.PrintDefaults()
	}
	var (
		programFl = programFlag(fl)
		req       = requestFlags(fl)
		fixtureFl = fl.String("fixture", "", "YAML ledger fixture")
		rpcFl     = fl.String("rpc-endpoint", env("SOLANA_RPC_ENDPOINT", ""), "Solana RPC HTTP endpoint, used without -fixture")
		outFl     = fl.String("out", "", "Write the resulting ledger to this fixture file")
		timeoutFl = fl.Duration("timeout", 30*time.Second, "RPC timeout")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "[escrow] ", log.LstdFlags)

	programID, err := parseProgram(*programFl)
	if err != nil {
		return err
	}
	res, err := req.Resolve(programID)
	if err != nil {
		return err
	}
	ix := res.Instruction()

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFl)
	defer cancel()

	var ledger *runtime.Ledger
	switch {
	case *fixtureFl != "":
		if ledger, err = snapshot.LoadFile(*fixtureFl); err != nil {
			return err
		}
	case *rpcFl != "":
		rpc := solanarpc.NewHTTPClient(*rpcFl)
		if ledger, err = snapshot.FetchAccounts(ctx, rpc, snapshot.InstructionAccounts(ix)); err != nil {
			return err
		}
		logger.Printf("Fetched %d accounts from %s", ledger.Len(), *rpcFl)
	default:
		return errors.New("-fixture or -rpc-endpoint is required")
	}

	svc := registry.NewService(memory.NewEscrowStore(), memory.NewAttemptStore(), registry.WithLogger(logger))
	rec, execErr := svc.CreateEscrow(ctx, runtime.New(ledger), ix, res.Signers())
	if execErr != nil {
		if err := writeJSON(output, api.NewErrorResponse(execErr)); err != nil {
			return err
		}
		return fmt.Errorf("simulate: %w", execErr)
	}

	if *outFl != "" {
		if err := snapshot.WriteFile(*outFl, ledger); err != nil {
			return err
		}
		logger.Printf("Ledger written to %s", *outFl)
	}
	return writeJSON(output, api.NewEscrow(rec))
}
