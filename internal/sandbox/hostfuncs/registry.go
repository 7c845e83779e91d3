package hostfuncs

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostModuleName is the module name under which host functions are exported
// to the guest, matching the plugin world's imports.
const HostModuleName = "logcraft_host"

// Register installs the outbound-http host function into the runtime.
// It is the sandbox's only host capability (spec §4.1, §9).
func Register(ctx context.Context, runtime wazero.Runtime, info BuildInfo) error {
	_, err := runtime.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			HTTPRequest(ctx, mod, stack, info)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("outbound_http").
		Instantiate(ctx)
	return err
}
