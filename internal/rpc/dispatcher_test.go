package rpc

import (
	"context"
	"testing"

	"github.com/orbitalmind/kernel/internal/types"
)

func TestDispatchUnknownMethodIsInvalidParams(t *testing.T) {
	d := NewDispatcher()
	result := d.Dispatch(context.Background(), types.RPCRequest{ID: 1, Method: "nope"})
	if result.Error == nil {
		t.Fatalf("expected error for unknown method")
	}
	if result.Error.Code != string(types.KindInvalidParams) {
		t.Fatalf("expected invalid_params code, got %s", result.Error.Code)
	}
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	d := NewDispatcher()
	d.Register("echo", func(ctx context.Context, params interface{}) (interface{}, error) {
		return params, nil
	})
	result := d.Dispatch(context.Background(), types.RPCRequest{ID: 2, Method: "echo", Params: "hi"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.Result != "hi" {
		t.Fatalf("expected echoed param, got %v", result.Result)
	}
}

func TestValidateParamsRejectsMissingRequiredField(t *testing.T) {
	p := &ThinkParams{Mode: "build"}
	if err := ValidateParams(p); err == nil {
		t.Fatalf("expected validation error for missing content")
	}
}

func TestValidateParamsAcceptsWellFormedRequest(t *testing.T) {
	p := &ThinkParams{Content: "hello", Mode: "build", Scale: 1}
	if err := ValidateParams(p); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
