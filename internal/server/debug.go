package server

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/teamcutter/csharpls/internal/domain"
)

var ErrUnknownAdapter = errors.New("unknown debug adapter")

// SupportsAdapter reports whether name is served by netcoredbg. "coreclr"
// is accepted as an alias.
func SupportsAdapter(name string) bool {
	return name == "netcoredbg" || name == "coreclr"
}

// RequestKind reads the "request" field of a debug configuration.
func RequestKind(adapter, configuration string) (domain.RequestKind, error) {
	if !SupportsAdapter(adapter) {
		return "", fmt.Errorf("%w: %s", ErrUnknownAdapter, adapter)
	}

	req := gjson.Get(configuration, "request")
	if !req.Exists() || req.Type != gjson.String {
		return "", errors.New("debug configuration missing required 'request' field. Must be 'launch' or 'attach'")
	}

	switch k := domain.RequestKind(req.String()); k {
	case domain.RequestLaunch, domain.RequestAttach:
		return k, nil
	default:
		return "", fmt.Errorf("invalid 'request' value: '%s'. Expected 'launch' or 'attach'", req.String())
	}
}

// DebugAdapter builds the netcoredbg launch for a resolved debugger binary.
// Configurations without a launch request are treated as attach.
func DebugAdapter(adapter, configuration, debugger, cwd string) (*domain.DebugAdapterBinary, error) {
	if !SupportsAdapter(adapter) {
		return nil, fmt.Errorf("cannot create binary for adapter %s: %w", adapter, ErrUnknownAdapter)
	}

	request := domain.RequestAttach
	if gjson.Get(configuration, "request").String() == string(domain.RequestLaunch) {
		request = domain.RequestLaunch
	}

	return &domain.DebugAdapterBinary{
		Command: domain.Command{
			Path: debugger,
			Args: []string{"--interpreter=vscode"},
			Cwd:  cwd,
		},
		Configuration: configuration,
		Request:       request,
	}, nil
}
