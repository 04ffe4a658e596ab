package engine

import (
	"context"
	"time"

	"github.com/jchenli/finboard/internal/domain"
	"github.com/jchenli/finboard/internal/seed"
	"github.com/jchenli/finboard/internal/store"
	"github.com/shopspring/decimal"
)

// Mutations below are silent no-ops when no session is active: the engine
// has no namespace to write to, and the presentation layer treats the
// signed-out state separately. Remote write failures come back as
// *WriteError.

// AddAccount persists a new account under a generated ID and returns it.
// Creating an account has no balance side effects.
func (e *Engine) AddAccount(ctx context.Context, account domain.BankAccount) (string, error) {
	uid := e.sessionUID()
	if uid == "" {
		return "", nil
	}
	if err := account.Validate(); err != nil {
		return "", err
	}

	id := e.newID()
	account.ID = id
	if err := e.store.Upsert(ctx, e.path(uid, colAccounts), id, account.Doc()); err != nil {
		e.log.Error().Err(err).Str("account_id", id).Msg("Failed to write account")
		return "", writeErr("add account", err)
	}
	return id, nil
}

// DeleteAccount removes the account document. Transactions referencing it
// are deliberately left in place; readers resolve them through AccountName's
// sentinel.
func (e *Engine) DeleteAccount(ctx context.Context, id string) error {
	uid := e.sessionUID()
	if uid == "" {
		return nil
	}
	if err := e.store.Delete(ctx, e.path(uid, colAccounts), id); err != nil {
		e.log.Error().Err(err).Str("account_id", id).Msg("Failed to delete account")
		return writeErr("delete account", err)
	}
	return nil
}

// AddTransaction writes the transaction and the compensating balance update
// on the referenced account as one atomic batch: either both land or
// neither does. The new balance is computed from the locally cached account
// snapshot at call time; if the account is not known locally the balance
// update is skipped and the transaction still proceeds (degraded
// consistency, logged).
func (e *Engine) AddTransaction(ctx context.Context, tx domain.Transaction) (string, error) {
	uid := e.sessionUID()
	if uid == "" {
		return "", nil
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	id := e.newID()
	tx.ID = id

	ops := []store.BatchOp{{
		Kind: store.OpSet,
		Path: e.path(uid, colTransactions),
		ID:   id,
		Data: tx.Doc(),
	}}

	e.mu.Lock()
	account := e.app.Account(tx.AccountID)
	if account != nil {
		ops = append(ops, store.BatchOp{
			Kind: store.OpMerge,
			Path: e.path(uid, colAccounts),
			ID:   account.ID,
			Data: map[string]any{"balance": adjustBalance(account.Balance, tx.Amount, tx.Type, false)},
		})
	}
	e.mu.Unlock()

	if account == nil {
		e.log.Warn().
			Str("transaction_id", id).
			Str("account_id", tx.AccountID).
			Msg("Account not in local cache, skipping balance update")
	}

	if err := e.store.ApplyBatch(ctx, ops); err != nil {
		e.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to commit transaction batch")
		return "", writeErr("add transaction", err)
	}
	return id, nil
}

// DeleteTransaction removes the transaction and reverses its balance
// adjustment as one atomic batch, using the same local-read-then-write
// pattern and skip-if-account-missing fallback as AddTransaction. Deleting
// an unknown transaction is a no-op.
func (e *Engine) DeleteTransaction(ctx context.Context, id string) error {
	uid := e.sessionUID()
	if uid == "" {
		return nil
	}

	e.mu.Lock()
	tx := e.app.TransactionByID(id)
	if tx == nil {
		e.mu.Unlock()
		return nil
	}
	txCopy := *tx
	account := e.app.Account(txCopy.AccountID)
	var accountCopy *domain.BankAccount
	if account != nil {
		a := *account
		accountCopy = &a
	}
	e.mu.Unlock()

	ops := []store.BatchOp{{
		Kind: store.OpDelete,
		Path: e.path(uid, colTransactions),
		ID:   id,
	}}
	if accountCopy != nil {
		ops = append(ops, store.BatchOp{
			Kind: store.OpMerge,
			Path: e.path(uid, colAccounts),
			ID:   accountCopy.ID,
			Data: map[string]any{"balance": adjustBalance(accountCopy.Balance, txCopy.Amount, txCopy.Type, true)},
		})
	} else {
		e.log.Warn().
			Str("transaction_id", id).
			Str("account_id", txCopy.AccountID).
			Msg("Account not in local cache, skipping balance reversal")
	}

	if err := e.store.ApplyBatch(ctx, ops); err != nil {
		e.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to commit delete batch")
		return writeErr("delete transaction", err)
	}
	return nil
}

// AddStock persists a new holding, stamping LastUpdated with the current
// time.
func (e *Engine) AddStock(ctx context.Context, stock domain.StockHolding) (string, error) {
	uid := e.sessionUID()
	if uid == "" {
		return "", nil
	}
	if err := stock.Validate(); err != nil {
		return "", err
	}

	id := e.newID()
	stock.ID = id
	stock.LastUpdated = e.now()
	if err := e.store.Upsert(ctx, e.path(uid, colStocks), id, stock.Doc()); err != nil {
		e.log.Error().Err(err).Str("stock_id", id).Msg("Failed to write stock")
		return "", writeErr("add stock", err)
	}
	return id, nil
}

// UpdateStockPrice merges only the current price and a refreshed LastUpdated
// into the holding. It is independent of any batch.
func (e *Engine) UpdateStockPrice(ctx context.Context, id string, price float64) error {
	uid := e.sessionUID()
	if uid == "" {
		return nil
	}
	if price < 0 {
		return domain.NewValidationError("stock price must not be negative")
	}
	data := map[string]any{
		"currentPrice": price,
		"lastUpdated":  e.now().UTC().Format(time.RFC3339),
	}
	if err := e.store.Merge(ctx, e.path(uid, colStocks), id, data); err != nil {
		e.log.Error().Err(err).Str("stock_id", id).Msg("Failed to update stock price")
		return writeErr("update stock price", err)
	}
	return nil
}

// DeleteStock removes the holding.
func (e *Engine) DeleteStock(ctx context.Context, id string) error {
	uid := e.sessionUID()
	if uid == "" {
		return nil
	}
	if err := e.store.Delete(ctx, e.path(uid, colStocks), id); err != nil {
		e.log.Error().Err(err).Str("stock_id", id).Msg("Failed to delete stock")
		return writeErr("delete stock", err)
	}
	return nil
}

// ResetData seeds the demo dataset into the user's namespace as one atomic
// batch. Intended for bootstrapping a user whose account collection is
// empty; it does not clear documents that already exist.
func (e *Engine) ResetData(ctx context.Context) error {
	uid := e.sessionUID()
	if uid == "" {
		return nil
	}

	demo := seed.DemoData(e.now())
	ops := make([]store.BatchOp, 0, len(demo.Accounts)+len(demo.Transactions)+len(demo.Stocks))
	for _, a := range demo.Accounts {
		ops = append(ops, store.BatchOp{Kind: store.OpSet, Path: e.path(uid, colAccounts), ID: a.ID, Data: a.Doc()})
	}
	for _, t := range demo.Transactions {
		ops = append(ops, store.BatchOp{Kind: store.OpSet, Path: e.path(uid, colTransactions), ID: t.ID, Data: t.Doc()})
	}
	for _, h := range demo.Stocks {
		ops = append(ops, store.BatchOp{Kind: store.OpSet, Path: e.path(uid, colStocks), ID: h.ID, Data: h.Doc()})
	}

	if err := e.store.ApplyBatch(ctx, ops); err != nil {
		e.log.Error().Err(err).Msg("Failed to seed demo data")
		return writeErr("reset data", err)
	}
	return nil
}

func (e *Engine) sessionUID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uid
}

// adjustBalance applies or reverses a transaction's effect on a cached
// balance. The arithmetic runs in decimals so repeated compensating writes
// do not accumulate float drift.
func adjustBalance(balance, amount float64, typ domain.TransactionType, reverse bool) float64 {
	b := decimal.NewFromFloat(balance)
	a := decimal.NewFromFloat(amount)
	add := typ == domain.TypeIncome
	if reverse {
		add = !add
	}
	if add {
		b = b.Add(a)
	} else {
		b = b.Sub(a)
	}
	f, _ := b.Float64()
	return f
}
