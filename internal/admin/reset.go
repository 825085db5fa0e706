// Package admin provides administrative operations over stored table state:
// listing, inspection and reset. The HTTP API and portalctl share it.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/portal/internal/kv"
	"github.com/JonMunkholm/portal/internal/viewstate"
)

// ResetTimeout is the maximum duration for a reset-all operation.
const ResetTimeout = 30 * time.Second

// Table is one stored table-state record.
type Table struct {
	Title string `json:"title"`
	kv.Entry
}

// Tables manages the records stored under one key prefix.
type Tables struct {
	Store  kv.Backend
	Prefix string
}

// List returns every stored record under the prefix, sorted by key.
func (t *Tables) List(ctx context.Context) ([]Table, error) {
	entries, err := t.Store.List(ctx, t.Prefix)
	if err != nil {
		return nil, fmt.Errorf("list table state: %w", err)
	}

	out := make([]Table, 0, len(entries))
	for _, e := range entries {
		out = append(out, Table{Title: strings.TrimPrefix(e.Key, t.Prefix), Entry: e})
	}
	return out, nil
}

// Inspect decodes the stored record for title over defaults built with
// pageSize. ok is false when nothing is stored. Field problems are returned
// alongside the merged state rather than failing the call.
func (t *Tables) Inspect(ctx context.Context, title string, pageSize int) (state viewstate.TableViewState, problems []error, ok bool, err error) {
	if err := viewstate.ValidateTitle(title); err != nil {
		return state, nil, false, fmt.Errorf("title %q: %w", title, err)
	}

	raw, ok, err := t.Store.Get(ctx, viewstate.Key(t.Prefix, title))
	if err != nil {
		return state, nil, false, fmt.Errorf("read %s: %w", title, err)
	}
	base := viewstate.Defaults(pageSize)
	if !ok {
		return base, nil, false, nil
	}
	state, problems = viewstate.Decode(raw, base)
	return state, problems, true, nil
}

// Reset deletes the stored record for title. The next load yields defaults.
func (t *Tables) Reset(ctx context.Context, title string) error {
	if err := viewstate.ValidateTitle(title); err != nil {
		return fmt.Errorf("title %q: %w", title, err)
	}
	key := viewstate.Key(t.Prefix, title)
	if err := t.Store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ResetAll deletes every record under the prefix and returns how many were
// removed. It stops at the first failure.
func (t *Tables) ResetAll(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	tables, err := t.List(ctx)
	if err != nil {
		return 0, err
	}

	resets := make([]resetFn, 0, len(tables))
	for _, tbl := range tables {
		key := tbl.Key
		resets = append(resets, func(ctx context.Context) error { return t.Store.Delete(ctx, key) })
	}
	return runResets(ctx, resets)
}

type resetFn func(ctx context.Context) error

func runResets(ctx context.Context, resets []resetFn) (int, error) {
	for i, reset := range resets {
		if err := reset(ctx); err != nil {
			return i, err
		}
	}
	return len(resets), nil
}
