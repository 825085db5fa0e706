// Package kv provides the durable key-value storage that backs persisted
// table view state.
//
// The view-state manager only needs [Store]: a get/set pair over opaque byte
// values keyed by string. [Backend] adds the administrative operations used by
// the HTTP reset endpoint, the health check and the portalctl CLI.
//
// Three backends are provided:
//
//   - [MemoryStore]: process-local map, used by tests and STORAGE_DRIVER=memory
//   - [SQLiteStore]: single-file database, the default for single-node installs
//   - [PostgresStore]: shared database for multi-instance deployments
//
// Every write stamps the record with a fresh revision UUID and timestamp,
// exposed through [Entry] for inspection. A missing key is reported as
// ok=false, never as an error.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a backend after Close.
var ErrClosed = errors.New("kv: store is closed")

// Store is the minimal storage contract: one opaque value per key.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Backend is a Store with the administrative operations used outside the
// view-state manager.
type Backend interface {
	Store
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Entry, error)
	Ping(ctx context.Context) error
	Close() error
}

// Entry describes one stored record without its value.
type Entry struct {
	Key       string    `json:"key"`
	Size      int       `json:"size"`
	Revision  string    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}
