package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/errors"
)

const inputRef bridge.Ref = 1

// hostFunc lowers process-obd-data onto a bridge.Function.
type hostFunc struct {
	fn  *bridge.Function
	log *zap.Logger
}

// register instantiates the host module in r.
func (h *hostFunc) register(ctx context.Context, r wazero.Runtime) error {
	sig := processSignature
	_, err := r.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.call), sig.flatParams, sig.flatResults).
		WithParameterNames("ptr", "len", "retptr").
		Export(HostFunc).
		Instantiate(ctx)
	if err != nil {
		return errors.Registration(HostModule, HostFunc, err)
	}
	h.log.Debug("registered host function",
		zap.String("module", HostModule),
		zap.String("name", HostFunc),
		zap.Stringer("signature", sig))
	return nil
}

// call handles (ptr, len, retptr). On failure it stores an empty result.
func (h *hostFunc) call(ctx context.Context, mod api.Module, stack []uint64) {
	in := span{ptr: api.DecodeU32(stack[0]), len: api.DecodeU32(stack[1])}
	retptr := api.DecodeU32(stack[2])

	env, err := newGuestEnv(ctx, mod, in)
	if err != nil {
		h.log.Error("guest call rejected", zap.String("module", mod.Name()), zap.Error(err))
		return
	}

	ref, err := h.fn.CallErr(env, 0, inputRef)
	if err != nil {
		h.log.Warn("guest call failed",
			zap.Uint32("ptr", in.ptr),
			zap.Uint32("len", in.len),
			zap.Error(err))
		ref = 0
	}
	if err := env.storeResult(retptr, ref); err != nil {
		h.log.Error("store result", zap.Uint32("retptr", retptr), zap.Error(err))
	}
}
