// Package engine owns reconciliation between the local AppState projection
// and the remote document store. It subscribes to the per-user collections,
// replaces local state wholesale on every snapshot, and issues compensating
// batch writes so an account balance always tracks its transaction history.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jchenli/finboard/internal/auth"
	"github.com/jchenli/finboard/internal/domain"
	"github.com/jchenli/finboard/internal/store"
	"github.com/rs/zerolog"
)

// State is the engine's position in the per-session lifecycle.
type State string

const (
	// StateUnauthenticated means no session is active and local state is
	// empty.
	StateUnauthenticated State = "UNAUTHENTICATED"
	// StateLoading means a session is active but not all collections have
	// delivered their first snapshot yet.
	StateLoading State = "LOADING"
	// StateReady means accounts, transactions and stocks have each
	// delivered at least once.
	StateReady State = "READY"
)

// UnknownAccountLabel is the sentinel shown for transactions whose account
// was deleted.
const UnknownAccountLabel = "Unknown Account"

const (
	colAccounts     = "accounts"
	colTransactions = "transactions"
	colStocks       = "stocks"
)

// Engine is the sync core. Construct with New, then Start; all methods are
// safe for concurrent use.
type Engine struct {
	store    store.Store
	provider auth.Provider
	log      zerolog.Logger

	// Injectable for tests.
	newID func() string
	now   func() time.Time

	mu            sync.Mutex
	ctx           context.Context
	state         State
	uid           string
	app           domain.AppState
	delivered     map[string]bool
	subCancels    []store.CancelFunc
	cancelSession auth.CancelFunc

	watchMu  sync.Mutex
	watchers map[int]func()
	nextID   int
}

// New creates an engine bound to the given store and identity provider.
func New(st store.Store, provider auth.Provider, log zerolog.Logger) *Engine {
	return &Engine{
		store:    st,
		provider: provider,
		log:      log,
		newID:    uuid.NewString,
		now:      time.Now,
		state:    StateUnauthenticated,
		app:      emptyState(),
		watchers: make(map[int]func()),
	}
}

// Start begins tracking the identity provider. ctx bounds every subscription
// the engine opens; cancelling it tears the engine down.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()
	cancel := e.provider.OnSessionChange(e.handleSession)
	e.mu.Lock()
	e.cancelSession = cancel
	e.mu.Unlock()
}

// Stop releases the session subscription and all collection subscriptions.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancelSession
	e.cancelSession = nil
	e.teardownLocked()
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.notify()
}

// State reports the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns a deep copy of the current AppState projection.
func (e *Engine) Snapshot() domain.AppState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.app.Clone()
}

// OnChange registers fn to run after every state or collection change. The
// returned cancel releases the registration.
func (e *Engine) OnChange(fn func()) store.CancelFunc {
	e.watchMu.Lock()
	id := e.nextID
	e.nextID++
	e.watchers[id] = fn
	e.watchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.watchMu.Lock()
			delete(e.watchers, id)
			e.watchMu.Unlock()
		})
	}
}

// SignOut terminates the session through the identity gate. Local state is
// reset when the provider confirms the change through the session handler.
func (e *Engine) SignOut(ctx context.Context) error {
	return e.provider.SignOut(ctx)
}

// AccountName resolves an account reference for display. Dangling references
// resolve to UnknownAccountLabel instead of failing.
func (e *Engine) AccountName(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a := e.app.Account(id); a != nil {
		return a.Name
	}
	return UnknownAccountLabel
}

func (e *Engine) handleSession(s *auth.Session) {
	e.mu.Lock()
	if s == nil {
		if e.uid != "" || e.state != StateUnauthenticated {
			e.log.Info().Str("uid", e.uid).Msg("Session lost, resetting local state")
		}
		e.teardownLocked()
		e.mu.Unlock()
		e.notify()
		return
	}

	user := &domain.User{ID: s.UID, Name: s.Name, Email: s.Email, Avatar: s.Avatar}
	if s.UID == e.uid {
		// Same session; only the profile fields can have changed.
		e.app.User = user
		e.mu.Unlock()
		e.notify()
		return
	}

	e.teardownLocked()
	e.uid = s.UID
	e.state = StateLoading
	e.app.User = user
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Unlock()

	e.log.Info().Str("uid", s.UID).Msg("Session acquired, subscribing collections")

	uid := s.UID
	subs := []struct {
		name  string
		order *store.OrderBy
		apply func(string, store.Snapshot)
	}{
		{colAccounts, nil, e.applyAccounts},
		{colTransactions, &store.OrderBy{Field: "date", Dir: store.Descending}, e.applyTransactions},
		{colStocks, nil, e.applyStocks},
	}
	for _, sub := range subs {
		apply := sub.apply
		handler := func(snap store.Snapshot) { apply(uid, snap) }
		cancel, err := e.store.SubscribeCollection(ctx, e.path(uid, sub.name), sub.order, handler)
		if err != nil {
			e.log.Error().Err(err).Str("collection", sub.name).Msg("Failed to subscribe collection")
			continue
		}
		e.mu.Lock()
		e.subCancels = append(e.subCancels, cancel)
		e.mu.Unlock()
	}
	e.notify()
}

// teardownLocked cancels subscriptions and resets local state. Callers must
// hold e.mu; subscription cancels run outside the snapshot handlers' path so
// invoking them under the lock is safe.
func (e *Engine) teardownLocked() {
	for _, cancel := range e.subCancels {
		cancel()
	}
	e.subCancels = nil
	e.uid = ""
	e.state = StateUnauthenticated
	e.app = emptyState()
	e.delivered = nil
}

// Each apply carries the uid its subscription belongs to; a delivery that
// was already in flight when the session changed is dropped instead of
// repopulating the reset state.

func (e *Engine) applyAccounts(uid string, snap store.Snapshot) {
	accounts := make([]domain.BankAccount, 0, len(snap))
	for _, d := range snap {
		accounts = append(accounts, domain.AccountFromDoc(d.ID, d.Data))
	}
	e.mu.Lock()
	if e.uid != uid {
		e.mu.Unlock()
		return
	}
	e.app.Accounts = accounts
	e.markDeliveredLocked(colAccounts)
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) applyTransactions(uid string, snap store.Snapshot) {
	transactions := make([]domain.Transaction, 0, len(snap))
	for _, d := range snap {
		transactions = append(transactions, domain.TransactionFromDoc(d.ID, d.Data))
	}
	e.mu.Lock()
	if e.uid != uid {
		e.mu.Unlock()
		return
	}
	e.app.Transactions = transactions
	e.markDeliveredLocked(colTransactions)
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) applyStocks(uid string, snap store.Snapshot) {
	stocks := make([]domain.StockHolding, 0, len(snap))
	for _, d := range snap {
		stocks = append(stocks, domain.StockFromDoc(d.ID, d.Data))
	}
	e.mu.Lock()
	if e.uid != uid {
		e.mu.Unlock()
		return
	}
	e.app.Stocks = stocks
	e.markDeliveredLocked(colStocks)
	e.mu.Unlock()
	e.notify()
}

// markDeliveredLocked records a first snapshot and promotes Loading to Ready
// once all three collections have reported. Later snapshots update state
// unconditionally regardless of lifecycle state.
func (e *Engine) markDeliveredLocked(collection string) {
	if e.delivered == nil {
		e.delivered = make(map[string]bool, 3)
	}
	e.delivered[collection] = true
	if e.state == StateLoading &&
		e.delivered[colAccounts] && e.delivered[colTransactions] && e.delivered[colStocks] {
		e.state = StateReady
		e.log.Info().Msg("Initial snapshots received, engine ready")
	}
}

func (e *Engine) path(uid, collection string) string {
	return "users/" + uid + "/" + collection
}

func (e *Engine) notify() {
	e.watchMu.Lock()
	fns := make([]func(), 0, len(e.watchers))
	for _, fn := range e.watchers {
		fns = append(fns, fn)
	}
	e.watchMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func emptyState() domain.AppState {
	return domain.AppState{
		Accounts:     []domain.BankAccount{},
		Transactions: []domain.Transaction{},
		Stocks:       []domain.StockHolding{},
		Categories:   domain.DefaultCategories,
	}
}
