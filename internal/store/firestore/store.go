// Package firestore implements store.Store on Cloud Firestore. Collection
// subscriptions map to Firestore snapshot listeners, which already deliver
// full query results on every change, and atomic batches map to Firestore
// write batches.
package firestore

import (
	"context"
	"fmt"
	"sync"

	fs "cloud.google.com/go/firestore"
	"github.com/jchenli/finboard/internal/store"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Client wraps a Firestore client behind the store.Store contract.
type Client struct {
	c   *fs.Client
	log zerolog.Logger
}

// New connects to Firestore for the given project. Credentials come from the
// environment unless overridden through opts.
func New(ctx context.Context, projectID string, log zerolog.Logger, opts ...option.ClientOption) (*Client, error) {
	c, err := fs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	return &Client{c: c, log: log}, nil
}

// Close releases the underlying Firestore client.
func (s *Client) Close() error {
	return s.c.Close()
}

// SubscribeCollection implements store.Store. Each subscription runs its own
// listener goroutine; deliveries stop when the returned CancelFunc is called
// or ctx is done.
func (s *Client) SubscribeCollection(ctx context.Context, path string, order *store.OrderBy, h store.SnapshotHandler) (store.CancelFunc, error) {
	if h == nil {
		return nil, fmt.Errorf("firestore: nil snapshot handler")
	}

	q := s.c.Collection(path).Query
	if order != nil {
		dir := fs.Asc
		if order.Dir == store.Descending {
			dir = fs.Desc
		}
		q = q.OrderBy(order.Field, dir)
	}

	subCtx, cancelCtx := context.WithCancel(ctx)
	iter := q.Snapshots(subCtx)

	go func() {
		defer iter.Stop()
		for {
			qs, err := iter.Next()
			if err != nil {
				if subCtx.Err() == nil {
					s.log.Error().Err(err).Str("path", path).Msg("Snapshot listener stopped")
				}
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				s.log.Error().Err(err).Str("path", path).Msg("Failed to read snapshot documents")
				continue
			}
			snap := make(store.Snapshot, 0, len(docs))
			for _, d := range docs {
				snap = append(snap, store.Document{ID: d.Ref.ID, Data: d.Data()})
			}
			h(snap)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(cancelCtx)
	}
	return cancel, nil
}

// Upsert implements store.Store.
func (s *Client) Upsert(ctx context.Context, path, id string, data map[string]any) error {
	if _, err := s.c.Collection(path).Doc(id).Set(ctx, data); err != nil {
		return fmt.Errorf("firestore: upsert %s/%s: %w", path, id, err)
	}
	return nil
}

// Merge implements store.Store.
func (s *Client) Merge(ctx context.Context, path, id string, data map[string]any) error {
	if _, err := s.c.Collection(path).Doc(id).Set(ctx, data, fs.MergeAll); err != nil {
		return fmt.Errorf("firestore: merge %s/%s: %w", path, id, err)
	}
	return nil
}

// Delete implements store.Store. Firestore deletes are already no-ops for
// absent documents.
func (s *Client) Delete(ctx context.Context, path, id string) error {
	if _, err := s.c.Collection(path).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore: delete %s/%s: %w", path, id, err)
	}
	return nil
}

// ApplyBatch implements store.Store using a Firestore write batch, which
// commits all operations or none.
func (s *Client) ApplyBatch(ctx context.Context, ops []store.BatchOp) error {
	b := s.c.Batch()
	for i := range ops {
		op := &ops[i]
		ref := s.c.Collection(op.Path).Doc(op.ID)
		switch op.Kind {
		case store.OpSet:
			b = b.Set(ref, op.Data)
		case store.OpMerge:
			b = b.Set(ref, op.Data, fs.MergeAll)
		case store.OpDelete:
			b = b.Delete(ref)
		default:
			return fmt.Errorf("firestore: batch op %d: unknown kind %d", i, op.Kind)
		}
	}
	if _, err := b.Commit(ctx); err != nil {
		return fmt.Errorf("firestore: commit batch of %d: %w", len(ops), err)
	}
	return nil
}

// Ensure Client implements the store interface.
var _ store.Store = (*Client)(nil)
