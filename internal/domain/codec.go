package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Documents in the remote store are flat field maps keyed by the same names
// the original collections use. The helpers below convert between entities
// and those maps; they are forgiving on read because remote documents may
// have been written by older clients (missing fields decode to zero values,
// integers and floats are both accepted as numbers).

// Doc flattens the account for a store write.
func (a BankAccount) Doc() map[string]any {
	return map[string]any{
		"name":          a.Name,
		"bankName":      a.BankName,
		"accountNumber": a.AccountNumber,
		"balance":       a.Balance,
		"currency":      a.Currency,
		"color":         a.Color,
	}
}

// AccountFromDoc rebuilds an account from a store document.
func AccountFromDoc(id string, data map[string]any) BankAccount {
	return BankAccount{
		ID:            id,
		Name:          asString(data["name"]),
		BankName:      asString(data["bankName"]),
		AccountNumber: asString(data["accountNumber"]),
		Balance:       asFloat(data["balance"]),
		Currency:      asString(data["currency"]),
		Color:         asString(data["color"]),
	}
}

// Doc flattens the transaction for a store write. Dates are stored as
// YYYY-MM-DD strings so the store's ordering key sorts them correctly.
func (t Transaction) Doc() map[string]any {
	return map[string]any{
		"accountId": t.AccountID,
		"date":      t.Date.String(),
		"amount":    t.Amount,
		"type":      string(t.Type),
		"category":  t.Category,
		"note":      t.Note,
	}
}

// TransactionFromDoc rebuilds a transaction from a store document.
func TransactionFromDoc(id string, data map[string]any) Transaction {
	date, _ := civil.ParseDate(asString(data["date"]))
	return Transaction{
		ID:        id,
		AccountID: asString(data["accountId"]),
		Date:      date,
		Amount:    asFloat(data["amount"]),
		Type:      TransactionType(asString(data["type"])),
		Category:  asString(data["category"]),
		Note:      asString(data["note"]),
	}
}

// Doc flattens the holding for a store write.
func (h StockHolding) Doc() map[string]any {
	return map[string]any{
		"symbol":       h.Symbol,
		"name":         h.Name,
		"shares":       h.Shares,
		"averageCost":  h.AverageCost,
		"currentPrice": h.CurrentPrice,
		"lastUpdated":  h.LastUpdated.UTC().Format(time.RFC3339),
	}
}

// StockFromDoc rebuilds a holding from a store document.
func StockFromDoc(id string, data map[string]any) StockHolding {
	updated, _ := time.Parse(time.RFC3339, asString(data["lastUpdated"]))
	return StockHolding{
		ID:           id,
		Symbol:       asString(data["symbol"]),
		Name:         asString(data["name"]),
		Shares:       asFloat(data["shares"]),
		AverageCost:  asFloat(data["averageCost"]),
		CurrentPrice: asFloat(data["currentPrice"]),
		LastUpdated:  updated,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
