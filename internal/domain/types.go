package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// TransactionType classifies a transaction as money in or money out.
type TransactionType string

const (
	// TypeIncome marks a transaction that increases the account balance.
	TypeIncome TransactionType = "INCOME"
	// TypeExpense marks a transaction that decreases the account balance.
	TypeExpense TransactionType = "EXPENSE"
)

// User is the authenticated owner of the dataset. It is built from the
// identity provider's session and never persisted to the remote store.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// BankAccount is a cash account. Balance must equal the opening balance plus
// the signed sum of all transactions referencing the account after every
// completed operation; the sync engine maintains that with compensating
// batch writes.
type BankAccount struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	BankName      string  `json:"bankName"`
	AccountNumber string  `json:"accountNumber"`
	Balance       float64 `json:"balance"`
	Currency      string  `json:"currency"`
	Color         string  `json:"color"`
}

// Transaction is a single income or expense record. AccountID is a loose
// reference: deleting the account does not cascade here, so readers must
// tolerate dangling references. Category references a Category by name, not
// by ID. There is no update operation; records are added and deleted only.
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Date      civil.Date      `json:"date"`
	Amount    float64         `json:"amount"`
	Type      TransactionType `json:"type"`
	Category  string          `json:"category"`
	Note      string          `json:"note,omitempty"`
}

// StockHolding is a position in the portfolio. CurrentPrice is mutable
// independently of shares and cost; LastUpdated is stamped on creation and on
// every price update.
type StockHolding struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	Shares       float64   `json:"shares"`
	AverageCost  float64   `json:"averageCost"`
	CurrentPrice float64   `json:"currentPrice"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// Category is static reference data seeded once per process. Categories are
// not persisted remotely and not user-editable.
type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Color string          `json:"color"`
}

// AppState is the aggregate local snapshot handed to the presentation layer.
// It is a read-only projection: accounts, transactions and stocks mirror the
// remote store, user mirrors the identity provider, categories are process
// constants. No field is a source of truth on its own.
type AppState struct {
	User         *User          `json:"user"`
	Accounts     []BankAccount  `json:"accounts"`
	Transactions []Transaction  `json:"transactions"`
	Stocks       []StockHolding `json:"stocks"`
	Categories   []Category     `json:"categories"`
}

// Clone returns a deep copy so callers can hold the snapshot without racing
// the engine's own mutations.
func (s AppState) Clone() AppState {
	out := AppState{
		Accounts:     make([]BankAccount, len(s.Accounts)),
		Transactions: make([]Transaction, len(s.Transactions)),
		Stocks:       make([]StockHolding, len(s.Stocks)),
		Categories:   make([]Category, len(s.Categories)),
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	copy(out.Accounts, s.Accounts)
	copy(out.Transactions, s.Transactions)
	copy(out.Stocks, s.Stocks)
	copy(out.Categories, s.Categories)
	return out
}

// Account returns the account with the given ID, or nil if it is not in the
// snapshot.
func (s AppState) Account(id string) *BankAccount {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return &s.Accounts[i]
		}
	}
	return nil
}

// TransactionByID returns the transaction with the given ID, or nil.
func (s AppState) TransactionByID(id string) *Transaction {
	for i := range s.Transactions {
		if s.Transactions[i].ID == id {
			return &s.Transactions[i]
		}
	}
	return nil
}
