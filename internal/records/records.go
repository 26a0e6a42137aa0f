// Package records defines the generic record store contract shared by all
// managers: typed collections of JSON records keyed by id, scoped to the
// tenant carried in the request context.
package records

import (
	"context"
	"encoding/json"
	"fmt"
)

// Type names a record collection.
type Type string

const (
	TypeProcesses  Type = "processes"
	TypeIssues     Type = "issues"
	TypeActions    Type = "actions"
	TypeDocuments  Type = "documents"
	TypeLeadership Type = "leadership"
	TypeObjectives Type = "objectives"
	TypeKPIs       Type = "kpis"
)

// Types lists every known collection.
var Types = []Type{
	TypeProcesses, TypeIssues, TypeActions, TypeDocuments,
	TypeLeadership, TypeObjectives, TypeKPIs,
}

// Valid reports whether t names a known collection.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Store is the record store contract. Implementations partition data by the
// tenant in ctx. Create and Update echo the stored record so remote stores can
// surface server-side normalization.
type Store interface {
	Fetch(ctx context.Context, typ Type) ([]json.RawMessage, error)
	Create(ctx context.Context, typ Type, id string, record any) (json.RawMessage, error)
	Update(ctx context.Context, typ Type, id string, record any) (json.RawMessage, error)
	Delete(ctx context.Context, typ Type, id string) error
}

// FetchAs fetches a collection and decodes every record into T.
func FetchAs[T any](ctx context.Context, s Store, typ Type) ([]T, error) {
	raws, err := s.Fetch(ctx, typ)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", typ, err)
		}
		out = append(out, v)
	}
	return out, nil
}
