// Package store defines the contract for the remote document store the sync
// engine reconciles against. Implementations deliver full-collection
// snapshots on every change and apply multi-document batches atomically.
// This abstraction allows for different backends (Cloud Firestore, in-memory).
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a store that has been shut down.
var ErrClosed = errors.New("store is closed")

// Document is a single stored record: an opaque ID plus a flat field map.
type Document struct {
	ID   string
	Data map[string]any
}

// Snapshot is the full materialized view of one collection. Every delivery
// replaces the previous one wholesale; it is never a delta.
type Snapshot []Document

// SnapshotHandler receives collection snapshots. Implementations invoke it
// once immediately after subscribing with the current state, then again on
// every change, in delivery order for that subscription.
type SnapshotHandler func(Snapshot)

// CancelFunc releases a subscription. Calling it more than once is safe.
type CancelFunc func()

// Direction orders a subscribed collection by a document field.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// OrderBy names the optional ordering key for a subscription.
type OrderBy struct {
	Field string
	Dir   Direction
}

// OpKind selects the effect of a batch operation.
type OpKind int

const (
	// OpSet writes the full document, replacing any existing fields.
	OpSet OpKind = iota
	// OpMerge updates only the fields present in Data.
	OpMerge
	// OpDelete removes the document; deleting an absent document is a no-op.
	OpDelete
)

// BatchOp is one element of an atomic batch.
type BatchOp struct {
	Kind OpKind
	Path string
	ID   string
	Data map[string]any
}

// Store is the remote document store boundary.
//
// All mutations are scoped by collection path; callers build per-user paths
// such as "users/{uid}/accounts". ApplyBatch is all-or-nothing: either every
// operation lands or none does, and no subscriber observes a partially
// applied batch.
type Store interface {
	// SubscribeCollection registers h for full-collection snapshots of path,
	// optionally ordered by the given key. The returned CancelFunc stops
	// deliveries.
	SubscribeCollection(ctx context.Context, path string, order *OrderBy, h SnapshotHandler) (CancelFunc, error)

	// Upsert writes the full document, creating or replacing it.
	Upsert(ctx context.Context, path, id string, data map[string]any) error

	// Merge updates only the given fields of the document.
	Merge(ctx context.Context, path, id string, data map[string]any) error

	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, path, id string) error

	// ApplyBatch applies the operations as a single all-or-nothing unit.
	ApplyBatch(ctx context.Context, ops []BatchOp) error
}
