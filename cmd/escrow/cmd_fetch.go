package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"token-escrow/internal/snapshot"
	solanarpc "token-escrow/internal/solana"
)

func cmdFetch(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprint(fl.Output(), `
Fetch the accounts a create-escrow instruction touches and write them as a
YAML fixture, to stdout or to -out.

`)
		fl.PrintDefaults()
	}
	var (
		programFl = programFlag(fl)
		req       = requestFlags(fl)
		rpcFl     = fl.String("rpc-endpoint", env("SOLANA_RPC_ENDPOINT", ""), "Solana RPC HTTP endpoint (required)")
		outFl     = fl.String("out", "", "Fixture file. Defaults to stdout.")
		timeoutFl = fl.Duration("timeout", 30*time.Second, "RPC timeout")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	if *rpcFl == "" {
		return errors.New("-rpc-endpoint is required")
	}
	programID, err := parseProgram(*programFl)
	if err != nil {
		return err
	}
	res, err := req.Resolve(programID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFl)
	defer cancel()

	rpc := solanarpc.NewHTTPClient(*rpcFl)
	ledger, err := snapshot.FetchAccounts(ctx, rpc, snapshot.InstructionAccounts(res.Instruction()))
	if err != nil {
		return err
	}

	if *outFl != "" {
		return snapshot.WriteFile(*outFl, ledger)
	}
	return snapshot.Write(output, ledger)
}
