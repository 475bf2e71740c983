package rpc

import (
	"context"
	"fmt"

	"github.com/orbitalmind/kernel/internal/thought"
	"github.com/orbitalmind/kernel/internal/types"
)

// ThinkParams is the think() request shape.
type ThinkParams struct {
	Content   string `json:"content" validate:"required"`
	Mode      string `json:"mode" validate:"required"`
	Scale     int    `json:"scale" validate:"min=0,max=3"`
	SessionID string `json:"session_id"`
}

// RegisterThink wires the think/rethink/corrections methods.
func RegisterThink(d *Dispatcher, engine *thought.Engine) {
	d.Register("think", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[ThinkParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode think params", err)
		}
		if err := ValidateParams(p); err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}
		return engine.Think(ctx, thought.ThinkInput{
			Content:   p.Content,
			Mode:      types.Mode(p.Mode),
			Scale:     types.InjectionScale(p.Scale),
			SessionID: p.SessionID,
		})
	})

	d.Register("rethink", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[RethinkParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode rethink params", err)
		}
		if err := ValidateParams(p); err != nil {
			return nil, types.NewError(types.KindInvalidParams, err.Error(), nil)
		}
		return engine.Rethink(p.ThoughtID, p.Reason)
	})

	d.Register("corrections", func(ctx context.Context, raw interface{}) (interface{}, error) {
		p, err := decodeParams[CorrectionsParams](raw)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParams, "decode corrections params", err)
		}
		limit := p.Limit
		if limit <= 0 {
			limit = 20
		}
		return engine.Corrections(limit)
	})
}

// RethinkParams is the rethink() request shape.
type RethinkParams struct {
	ThoughtID string `json:"thought_id" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// CorrectionsParams is the corrections() request shape.
type CorrectionsParams struct {
	Limit int `json:"limit"`
}

// decodeParams converts a raw interface{} (typically map[string]interface{}
// as decoded from JSON) into a concrete request struct via a JSON
// round-trip — the same approach an MCP-style tool layer uses to turn
// generic param maps into typed structs before validation.
func decodeParams[T any](raw interface{}) (*T, error) {
	var out T
	if raw == nil {
		return &out, nil
	}
	if typed, ok := raw.(*T); ok {
		return typed, nil
	}
	if err := remarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return &out, nil
}
