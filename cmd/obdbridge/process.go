package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/errors"
	"github.com/wippyai/obd-bridge/hostenv"
)

func newProcessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "process [data...]",
		Short: "Process strings through an in-process host",
		Long: "Process each argument, or each stdin line when no arguments are given,\n" +
			"through the bridge function against an in-process managed host.",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readInputs(cmd, args)
			if err != nil {
				return err
			}

			host := hostenv.New(hostenv.WithLogger(a.log))
			defer host.Close()

			fn := bridge.New(a.bridgeOptions()...)
			out := cmd.OutOrStdout()
			for _, in := range inputs {
				res, err := processNative(host, fn, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, res)
			}
			return nil
		},
	}
}

// processNative runs one input through fn and frees both host strings.
func processNative(host *hostenv.Host, fn *bridge.Function, input string) (string, error) {
	in, err := host.NewString(input)
	if err != nil {
		return "", err
	}
	defer host.DeleteRef(in)

	ref, err := fn.CallErr(host, 0, in)
	if err != nil {
		return "", err
	}
	defer host.DeleteRef(ref)

	return host.String(ref)
}

// readInputs returns args, or stdin lines when args is empty and stdin is
// not a terminal.
func readInputs(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, errors.InvalidInput(errors.PhaseConfig, "no input: pass data arguments or pipe lines on stdin")
	}
	return scanLines(in)
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
