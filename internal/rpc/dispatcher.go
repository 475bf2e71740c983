// Package rpc is the domain-neutral request/response boundary: a flat
// tool-name to handler registry generalizing an MCP-style tool
// ToolRegistry, parameter validation via go-playground/validator, and the
// mapping from typed kernel errors to stable RPC error codes.
package rpc

import (
	"context"
	"fmt"

	"github.com/orbitalmind/kernel/internal/types"
)

// Handler processes one RPC call's params and returns a result or error.
// Params arrive raw; each concrete handler decodes them into its own
// request struct (decodeParams) and validates it (ValidateParams).
type Handler func(ctx context.Context, params interface{}) (interface{}, error)

// Dispatcher is a flat method-name to Handler registry, generalizing the
// teacher's MCP ToolRegistry beyond a fixed tool set.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher builds an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register adds a handler for method.
func (d *Dispatcher) Register(method string, h Handler) {
	d.handlers[method] = h
}

// Dispatch looks up and runs the handler for req.Method, wrapping the
// result or error into an RPCResult. An unknown method is reported as
// InvalidParams rather than InternalError: it is a caller mistake, not a
// server fault.
func (d *Dispatcher) Dispatch(ctx context.Context, req types.RPCRequest) types.RPCResult {
	h, ok := d.handlers[req.Method]
	if !ok {
		return types.RPCResult{
			ID: req.ID,
			Error: &types.RPCError{
				Code:    types.ErrorKindToCode(types.KindInvalidParams),
				Message: fmt.Sprintf("unknown method %q", req.Method),
			},
		}
	}

	result, err := h(ctx, req.Params)
	if err != nil {
		return types.RPCResult{
			ID: req.ID,
			Error: &types.RPCError{
				Code:    types.ErrorKindToCode(types.KindOf(err)),
				Message: err.Error(),
			},
		}
	}
	return types.RPCResult{ID: req.ID, Result: result}
}

// Methods lists every registered method name.
func (d *Dispatcher) Methods() []string {
	out := make([]string, 0, len(d.handlers))
	for m := range d.handlers {
		out = append(out, m)
	}
	return out
}
