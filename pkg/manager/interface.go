// Package manager defines the capability interfaces for commongo's external
// resources and the factory that selects a concrete backend for each.
//
// Callers depend only on DatabaseManager and MessagingManager; whether an
// instance drives external command-line tools or a native client library is
// decided by the factory from the ResourceConfig. Manager instances are not
// safe for concurrent use; each carries at most one logical connection and
// no internal locking. Callers needing parallelism create independent
// instances through the factory.
package manager

import (
	"context"
	"time"
)

// DatabaseManager is the capability interface for relational database access.
//
// Every data operation requires a prior successful Connect; calling one on a
// disconnected manager is a programming error and fails with ErrNotConnected,
// never a silent zero result.
type DatabaseManager interface {
	// Connect establishes the backend's logical connection. On success the
	// manager transitions to connected; on failure it stays disconnected.
	Connect(ctx context.Context) error

	// Disconnect releases the connection. Idempotent when already disconnected.
	Disconnect(ctx context.Context) error

	// IsConnected reports the manager's connection state.
	IsConnected() bool

	// ExecuteQuery runs a SELECT and returns its rows in emission order.
	// Parameter support depends on the backend: the library backend binds
	// params natively, the CLI backend rejects them (no silent dropping).
	ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]ResultRow, error)

	// ExecuteUpdate runs an INSERT, UPDATE, or DELETE and returns the
	// affected-row count. The CLI backend's count is approximate when the
	// external tool does not report one.
	ExecuteUpdate(ctx context.Context, query string, params ...interface{}) (int64, error)

	// ExecuteBatch runs the statements as one all-or-nothing unit: any
	// failure rolls back every statement in the batch and the whole call
	// fails. paramsList may be nil or shorter than queries.
	ExecuteBatch(ctx context.Context, queries []string, paramsList [][]interface{}) ([]int64, error)

	// WithTransaction begins a transaction, runs fn, and commits when fn
	// returns nil or rolls back when it returns an error, re-returning fn's
	// error unchanged. A rollback failure is logged but never masks fn's
	// error. The manager passed to fn is the receiver itself with its
	// operations scoped to the transaction.
	WithTransaction(ctx context.Context, fn func(DatabaseManager) error) error

	// GetTableInfo returns the column catalog rows for a table.
	GetTableInfo(ctx context.Context, table string) ([]ResultRow, error)

	// GetResourceInfo returns one row of server/instance metadata, or an
	// empty row if the backend cannot supply it.
	GetResourceInfo(ctx context.Context) (ResultRow, error)

	// TestConnection probes the connection with a trivial query. It never
	// returns an error; any failure reports false.
	TestConnection(ctx context.Context) bool
}

// MessagingManager is the capability interface for message-queue access.
// The connection-state contract matches DatabaseManager.
type MessagingManager interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	// PutMessage serializes the payload (map/struct to JSON, string to
	// UTF-8 bytes, []byte untouched) and enqueues it. props may be nil.
	PutMessage(ctx context.Context, queue string, payload interface{}, props *MessageProperties) error

	// GetMessage removes and returns the next message, waiting up to wait
	// (the configured timeout when wait <= 0). An empty queue is a normal
	// result: (nil, nil), never an error.
	GetMessage(ctx context.Context, queue string, wait time.Duration) (*MessageEnvelope, error)

	// BrowseMessage returns a message without removing it from the queue.
	// The library backend uses the broker's native browse mode and is
	// race-free; the CLI backend emulates browse as get-then-put-back, so a
	// concurrent consumer can steal the message in between. (nil, nil) when
	// the queue is empty.
	BrowseMessage(ctx context.Context, queue string, messageID string) (*MessageEnvelope, error)

	// GetQueueDepth returns the number of messages on the queue, 0 when the
	// broker reports a depth that cannot be parsed, and -1 when the inquiry
	// itself fails. The -1 is a sentinel, not an error, so polling loops
	// stay simple.
	GetQueueDepth(ctx context.Context, queue string) int

	// PurgeQueue discards every message on the queue and returns how many
	// were removed (the CLI backend reports the pre-clear depth).
	PurgeQueue(ctx context.Context, queue string) (int, error)

	// TestConnection probes the broker. Never returns an error; any failure
	// reports false.
	TestConnection(ctx context.Context) bool
}
