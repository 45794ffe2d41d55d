package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"token-escrow/internal/api"
	"token-escrow/internal/pda"
)

func cmdDerive(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("derive", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprint(fl.Output(), `
Print the escrow address and bump of a mint. Without -authority the escrow is
controlled by the token owner.

`)
		fl.PrintDefaults()
	}
	var (
		programFl   = programFlag(fl)
		mintFl      = fl.String("mint", "", "Mint of the token (required)")
		authorityFl = fl.String("authority", "", "Creator controlling the escrow")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	if *mintFl == "" {
		return errors.New("-mint is required")
	}
	programID, err := parseProgram(*programFl)
	if err != nil {
		return err
	}
	mint, err := pda.Parse(*mintFl)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	authority, err := api.ParseAuthority(*authorityFl)
	if err != nil {
		return err
	}

	resp, err := api.NewDeriveResponse(programID, mint, authority)
	if err != nil {
		return fmt.Errorf("derive: %w", err)
	}
	return writeJSON(output, resp)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
