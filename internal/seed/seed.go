// Package seed produces the starter dataset for new users.
package seed

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jchenli/finboard/internal/domain"
)

// Dataset is the demo data handed to the engine's reset operation:
// two accounts, five transactions and three stock holdings.
type Dataset struct {
	Accounts     []domain.BankAccount
	Transactions []domain.Transaction
	Stocks       []domain.StockHolding
}

// DemoData builds a fresh demo dataset. IDs are newly generated on every
// call, so repeated resets never collide; now stamps the stock holdings'
// LastUpdated.
//
// The two account balances are OPENING balances, stated as of before the
// seeded transactions apply. The dataset therefore does not satisfy
// balance == opening + sum(seeded transactions) by construction; the balance
// invariant holds for operations performed after seeding.
func DemoData(now time.Time) Dataset {
	account1 := uuid.NewString()
	account2 := uuid.NewString()

	return Dataset{
		Accounts: []domain.BankAccount{
			{ID: account1, Name: "Main Salary Account", BankName: "CTBC Bank", AccountNumber: "822-123456789", Balance: 150000, Currency: "TWD", Color: "#16a34a"},
			{ID: account2, Name: "Investment Reserve", BankName: "Cathay United Bank", AccountNumber: "013-987654321", Balance: 500000, Currency: "TWD", Color: "#ea580c"},
		},
		Transactions: []domain.Transaction{
			{ID: uuid.NewString(), AccountID: account1, Date: civil.Date{Year: 2023, Month: time.October, Day: 1}, Amount: 65000, Type: domain.TypeIncome, Category: "Salary", Note: "October salary"},
			{ID: uuid.NewString(), AccountID: account1, Date: civil.Date{Year: 2023, Month: time.October, Day: 2}, Amount: 12000, Type: domain.TypeExpense, Category: "Housing", Note: "Rent"},
			{ID: uuid.NewString(), AccountID: account1, Date: civil.Date{Year: 2023, Month: time.October, Day: 3}, Amount: 350, Type: domain.TypeExpense, Category: "Food", Note: "Dinner out"},
			{ID: uuid.NewString(), AccountID: account1, Date: civil.Date{Year: 2023, Month: time.October, Day: 5}, Amount: 1200, Type: domain.TypeExpense, Category: "Transport", Note: "Fuel"},
			{ID: uuid.NewString(), AccountID: account2, Date: civil.Date{Year: 2023, Month: time.October, Day: 10}, Amount: 5000, Type: domain.TypeIncome, Category: "Investment Income", Note: "Dividend payout"},
		},
		Stocks: []domain.StockHolding{
			{ID: uuid.NewString(), Symbol: "2330.TW", Name: "TSMC", Shares: 1000, AverageCost: 550, CurrentPrice: 1050, LastUpdated: now},
			{ID: uuid.NewString(), Symbol: "2317.TW", Name: "Hon Hai", Shares: 2000, AverageCost: 105, CurrentPrice: 200, LastUpdated: now},
			{ID: uuid.NewString(), Symbol: "NVDA", Name: "NVIDIA", Shares: 20, AverageCost: 450, CurrentPrice: 1200, LastUpdated: now},
		},
	}
}
