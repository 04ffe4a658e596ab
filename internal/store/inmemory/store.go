// Package inmemory implements store.Store with mutex-guarded maps. It is
// safe for concurrent use and suitable for local mode and tests; data is
// lost on restart - for persistence, use the firestore backend.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jchenli/finboard/internal/store"
)

// Memory holds every collection as a map of document ID to field map. Each
// subscriber gets its own delivery goroutine so one slow handler cannot stall
// writers or other subscribers; consecutive snapshots for the same subscriber
// coalesce to the latest, which is sound because snapshots are full
// replacements, not deltas.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	subs        map[int]*subscriber
	nextSubID   int
	closed      bool
}

type subscriber struct {
	path    string
	order   *store.OrderBy
	handler store.SnapshotHandler

	pendingMu sync.Mutex
	pending   store.Snapshot
	hasWork   chan struct{}
	done      chan struct{}
}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[int]*subscriber),
	}
}

// SubscribeCollection implements store.Store. The handler receives the
// current collection state immediately, then a fresh snapshot after every
// change to the collection.
func (m *Memory) SubscribeCollection(ctx context.Context, path string, order *store.OrderBy, h store.SnapshotHandler) (store.CancelFunc, error) {
	if h == nil {
		return nil, fmt.Errorf("inmemory: nil snapshot handler")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, store.ErrClosed
	}
	sub := &subscriber{
		path:    path,
		order:   order,
		handler: h,
		hasWork: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = sub

	// Initial delivery carries the state as of subscription time.
	sub.push(m.snapshotLocked(path, order))
	m.mu.Unlock()

	go sub.run(ctx)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(sub.done)
		})
	}
	return cancel, nil
}

// Upsert implements store.Store.
func (m *Memory) Upsert(ctx context.Context, path, id string, data map[string]any) error {
	return m.ApplyBatch(ctx, []store.BatchOp{{Kind: store.OpSet, Path: path, ID: id, Data: data}})
}

// Merge implements store.Store.
func (m *Memory) Merge(ctx context.Context, path, id string, data map[string]any) error {
	return m.ApplyBatch(ctx, []store.BatchOp{{Kind: store.OpMerge, Path: path, ID: id, Data: data}})
}

// Delete implements store.Store.
func (m *Memory) Delete(ctx context.Context, path, id string) error {
	return m.ApplyBatch(ctx, []store.BatchOp{{Kind: store.OpDelete, Path: path, ID: id}})
}

// ApplyBatch implements store.Store. Every operation applies inside one
// critical section, so subscribers never observe a half-applied batch: they
// are notified once per affected collection after the whole batch landed.
func (m *Memory) ApplyBatch(ctx context.Context, ops []store.BatchOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return store.ErrClosed
	}

	for i := range ops {
		op := &ops[i]
		if op.ID == "" {
			return fmt.Errorf("inmemory: batch op %d: document ID is required", i)
		}
		switch op.Kind {
		case store.OpSet, store.OpMerge, store.OpDelete:
		default:
			return fmt.Errorf("inmemory: batch op %d: unknown kind %d", i, op.Kind)
		}
	}

	touched := make(map[string]bool)
	for i := range ops {
		op := &ops[i]
		col := m.collections[op.Path]
		if col == nil {
			col = make(map[string]map[string]any)
			m.collections[op.Path] = col
		}
		switch op.Kind {
		case store.OpSet:
			col[op.ID] = copyDoc(op.Data)
		case store.OpMerge:
			doc := col[op.ID]
			if doc == nil {
				doc = make(map[string]any, len(op.Data))
				col[op.ID] = doc
			}
			for k, v := range op.Data {
				doc[k] = v
			}
		case store.OpDelete:
			delete(col, op.ID)
		}
		touched[op.Path] = true
	}

	for _, sub := range m.subs {
		if touched[sub.path] {
			sub.push(m.snapshotLocked(sub.path, sub.order))
		}
	}
	return nil
}

// Close shuts the store down. Subsequent operations fail with ErrClosed;
// subscriptions stop after their pending delivery.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, sub := range m.subs {
		delete(m.subs, id)
		close(sub.done)
	}
}

// snapshotLocked builds an ordered full-collection snapshot. Callers must
// hold m.mu.
func (m *Memory) snapshotLocked(path string, order *store.OrderBy) store.Snapshot {
	col := m.collections[path]
	snap := make(store.Snapshot, 0, len(col))
	for id, data := range col {
		snap = append(snap, store.Document{ID: id, Data: copyDoc(data)})
	}
	sort.Slice(snap, func(i, j int) bool {
		if order != nil {
			a, b := fieldKey(snap[i].Data[order.Field]), fieldKey(snap[j].Data[order.Field])
			if a != b {
				if order.Dir == store.Descending {
					return a > b
				}
				return a < b
			}
		}
		return snap[i].ID < snap[j].ID
	})
	return snap
}

func (s *subscriber) push(snap store.Snapshot) {
	s.pendingMu.Lock()
	s.pending = snap
	s.pendingMu.Unlock()
	select {
	case s.hasWork <- struct{}{}:
	default:
	}
}

func (s *subscriber) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.hasWork:
			s.pendingMu.Lock()
			snap := s.pending
			s.pending = nil
			s.pendingMu.Unlock()
			if snap != nil {
				s.handler(snap)
			}
		}
	}
}

func copyDoc(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func fieldKey(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Ensure Memory implements the store interface.
var _ store.Store = (*Memory)(nil)
