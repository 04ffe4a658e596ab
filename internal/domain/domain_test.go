package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestBankAccountValidate(t *testing.T) {
	a := BankAccount{Name: "Main", Balance: -50}
	if err := a.Validate(); err != nil {
		t.Errorf("negative balance should be allowed (overdraft): %v", err)
	}

	a.Name = ""
	err := a.Validate()
	if err == nil || !IsValidationError(err) {
		t.Errorf("missing name = %v, want ValidationError", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		AccountID: "a1",
		Date:      civil.Date{Year: 2023, Month: time.October, Day: 2},
		Amount:    100,
		Type:      TypeExpense,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"missing account", func(tx *Transaction) { tx.AccountID = "" }},
		{"negative amount", func(tx *Transaction) { tx.Amount = -1 }},
		{"bad type", func(tx *Transaction) { tx.Type = "TRANSFER" }},
		{"zero date", func(tx *Transaction) { tx.Date = civil.Date{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := valid
			tc.mutate(&tx)
			err := tx.Validate()
			if err == nil || !IsValidationError(err) {
				t.Errorf("Validate = %v, want ValidationError", err)
			}
		})
	}

	// Zero amount is legal; the balance adjustment is just a no-op.
	tx := valid
	tx.Amount = 0
	if err := tx.Validate(); err != nil {
		t.Errorf("zero amount rejected: %v", err)
	}
}

func TestStockHoldingValidate(t *testing.T) {
	h := StockHolding{Symbol: "2330.TW", Shares: 100, AverageCost: 500, CurrentPrice: 600}
	if err := h.Validate(); err != nil {
		t.Fatalf("valid holding rejected: %v", err)
	}
	h.Symbol = ""
	if err := h.Validate(); !IsValidationError(err) {
		t.Errorf("missing symbol = %v, want ValidationError", err)
	}
}

func TestTransactionDocDateFormat(t *testing.T) {
	tx := Transaction{
		AccountID: "a1",
		Date:      civil.Date{Year: 2023, Month: time.October, Day: 2},
		Amount:    12000,
		Type:      TypeExpense,
		Category:  "Housing",
	}
	doc := tx.Doc()
	// Dates persist as YYYY-MM-DD so lexicographic order matches date order.
	if doc["date"] != "2023-10-02" {
		t.Errorf("date field = %v, want 2023-10-02", doc["date"])
	}
	if doc["type"] != "EXPENSE" {
		t.Errorf("type field = %v, want EXPENSE", doc["type"])
	}
}

func TestFromDocToleratesForeignNumbers(t *testing.T) {
	// Older writers store integers where we write floats.
	a := AccountFromDoc("a1", map[string]any{"name": "Main", "balance": int64(150000)})
	if a.Balance != 150000 {
		t.Errorf("Balance = %v, want 150000", a.Balance)
	}

	tx := TransactionFromDoc("t1", map[string]any{"amount": 42})
	if tx.Amount != 42 {
		t.Errorf("Amount = %v, want 42", tx.Amount)
	}

	// Missing and malformed fields decode to zero values, never panic.
	h := StockFromDoc("s1", map[string]any{"lastUpdated": "not a time", "shares": "12"})
	if !h.LastUpdated.IsZero() || h.Shares != 0 {
		t.Errorf("StockFromDoc tolerance: %+v", h)
	}
}

func TestStockDocRoundTripsTimestamp(t *testing.T) {
	ts := time.Date(2023, 10, 26, 10, 30, 0, 0, time.UTC)
	h := StockHolding{Symbol: "NVDA", LastUpdated: ts}
	got := StockFromDoc("s1", h.Doc())
	if !got.LastUpdated.Equal(ts) {
		t.Errorf("LastUpdated = %v, want %v", got.LastUpdated, ts)
	}
}

func TestDefaultCategories(t *testing.T) {
	if len(DefaultCategories) != 7 {
		t.Fatalf("DefaultCategories = %d entries, want 7", len(DefaultCategories))
	}

	income, expense := 0, 0
	seen := make(map[string]bool)
	for _, c := range DefaultCategories {
		if seen[c.Name] {
			t.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Type {
		case TypeIncome:
			income++
		case TypeExpense:
			expense++
		default:
			t.Errorf("category %q has type %q", c.Name, c.Type)
		}
	}
	if income != 2 || expense != 5 {
		t.Errorf("income/expense split = %d/%d, want 2/5", income, expense)
	}

	if c, ok := CategoryByName("Housing"); !ok || c.Type != TypeExpense {
		t.Errorf("CategoryByName(Housing) = %+v, %v", c, ok)
	}
	if _, ok := CategoryByName("Gambling"); ok {
		t.Error("CategoryByName should miss unknown names")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := AppState{
		User:     &User{ID: "u1", Name: "A"},
		Accounts: []BankAccount{{ID: "a1", Balance: 100}},
	}
	c := s.Clone()
	c.User.Name = "B"
	c.Accounts[0].Balance = -1
	if s.User.Name != "A" || s.Accounts[0].Balance != 100 {
		t.Fatalf("Clone shares memory with the original: %+v", s)
	}
}

func TestAccountLookup(t *testing.T) {
	s := AppState{Accounts: []BankAccount{{ID: "a1", Name: "Main"}}}
	if a := s.Account("a1"); a == nil || a.Name != "Main" {
		t.Errorf("Account(a1) = %+v", a)
	}
	if a := s.Account("nope"); a != nil {
		t.Errorf("Account(nope) = %+v, want nil", a)
	}
}
