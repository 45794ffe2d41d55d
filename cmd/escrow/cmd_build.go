package main

import (
	"flag"
	"fmt"
	"io"

	"token-escrow/internal/api"
)

func cmdBuild(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("build", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprint(fl.Output(), `
Build a create-escrow instruction and print it as JSON, together with the
derived escrow address and the keys that must sign.

`)
		fl.PrintDefaults()
	}
	programFl := programFlag(fl)
	req := requestFlags(fl)
	if err := fl.Parse(args); err != nil {
		return err
	}

	programID, err := parseProgram(*programFl)
	if err != nil {
		return err
	}
	res, err := req.Resolve(programID)
	if err != nil {
		return err
	}

	resp, err := api.NewInstructionResponse(res)
	if err != nil {
		return fmt.Errorf("encode instruction: %w", err)
	}
	return writeJSON(output, resp)
}
