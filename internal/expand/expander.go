// Package expand rewrites a user query with synonyms and related terminology before
// retrieval. Expansion is best effort: callers fall back to the raw query on any error.
package expand

import (
	"context"
	"errors"
)

// ErrExpansionFailed wraps every failure an expander reports.
var ErrExpansionFailed = errors.New("query expansion failed")

// Expander returns an expanded form of query.
type Expander interface {
	Expand(ctx context.Context, query string) (string, error)
}

// Passthrough returns the query unchanged. It is used when expansion is disabled.
type Passthrough struct{}

// Expand returns query.
func (Passthrough) Expand(_ context.Context, query string) (string, error) {
	return query, nil
}

// Func adapts a function to Expander.
type Func func(ctx context.Context, query string) (string, error)

// Expand calls f.
func (f Func) Expand(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}
