package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/obd-bridge/wasmhost"
)

// processFunc is one backend's string processing.
type processFunc func(ctx context.Context, input string) (string, error)

func newWasmCmd(a *app) *cobra.Command {
	var modulePath string

	cmd := &cobra.Command{
		Use:   "wasm [data...]",
		Short: "Process strings through a WebAssembly guest",
		Long: "Process each argument, or each stdin line, by calling a guest module's\n" +
			"process export. The guest imports " + wasmhost.HostFunc + " from " + wasmhost.HostModule + ".\n" +
			"Without --module a built-in forwarding guest is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readInputs(cmd, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			rt, err := a.newWasmRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			process, closeFn, err := wasmBackend(ctx, rt, modulePath)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			for _, in := range inputs {
				res, err := process(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, res)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&modulePath, "module", "m", "", "Path to a core wasm guest module")
	return cmd
}

func (a *app) newWasmRuntime(ctx context.Context) (*wasmhost.Runtime, error) {
	return wasmhost.New(ctx, &wasmhost.Config{
		MemoryLimitPages: a.cfg.MemoryLimitPages,
		Strict:           a.cfg.Strict,
		Logger:           a.log,
		Observer:         a.observer(),
	})
}

// wasmBackend returns a processFunc for the guest at path, or for the
// forwarding guest when path is empty.
func wasmBackend(ctx context.Context, rt *wasmhost.Runtime, path string) (processFunc, func(), error) {
	if path == "" {
		return rt.Process, func() {}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read module: %w", err)
	}
	mod, err := rt.Compile(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, nil, err
	}
	return inst.Process, func() {
		_ = inst.Close(ctx)
		_ = mod.Close(ctx)
	}, nil
}
