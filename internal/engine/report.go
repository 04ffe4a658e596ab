package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/jchenli/finboard/internal/domain"
	"github.com/shopspring/decimal"
)

// usdToTWDMultiplier is the fixed heuristic used to fold non-Taiwan holdings
// into the cash total for display. It is explicitly approximate; correct
// multi-currency conversion is out of scope.
const usdToTWDMultiplier = 32

// CategoryTotal is one slice of the current month's expense breakdown.
type CategoryTotal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Report carries the derived aggregates the dashboard and the advisor
// consume.
type Report struct {
	TotalCash          float64         `json:"totalCash"`
	TotalStockValue    float64         `json:"totalStockValue"`
	NetWorth           float64         `json:"netWorth"`
	MonthlyIncome      float64         `json:"monthlyIncome"`
	MonthlyExpense     float64         `json:"monthlyExpense"`
	ExpenseByCategory  []CategoryTotal `json:"expenseByCategory"`
	TopExpenseCategory string          `json:"topExpenseCategory"`
}

// Report computes the aggregates over the current snapshot. Monthly figures
// cover the calendar month containing now.
func (e *Engine) Report(now time.Time) Report {
	state := e.Snapshot()

	cash := decimal.Zero
	for _, a := range state.Accounts {
		cash = cash.Add(decimal.NewFromFloat(a.Balance))
	}

	stockValue := decimal.Zero
	for _, h := range state.Stocks {
		v := decimal.NewFromFloat(h.Shares).Mul(decimal.NewFromFloat(h.CurrentPrice))
		if !strings.Contains(h.Symbol, ".TW") {
			v = v.Mul(decimal.NewFromInt(usdToTWDMultiplier))
		}
		stockValue = stockValue.Add(v)
	}

	income := decimal.Zero
	expense := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, t := range state.Transactions {
		if t.Date.Year != now.Year() || t.Date.Month != now.Month() {
			continue
		}
		amount := decimal.NewFromFloat(t.Amount)
		switch t.Type {
		case domain.TypeIncome:
			income = income.Add(amount)
		case domain.TypeExpense:
			expense = expense.Add(amount)
			byCategory[t.Category] = byCategory[t.Category].Add(amount)
		}
	}

	totals := make([]CategoryTotal, 0, len(byCategory))
	for _, c := range state.Categories {
		if c.Type != domain.TypeExpense {
			continue
		}
		if v, ok := byCategory[c.Name]; ok && v.IsPositive() {
			f, _ := v.Float64()
			totals = append(totals, CategoryTotal{Name: c.Name, Value: f, Color: c.Color})
		}
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Value > totals[j].Value })

	top := "None"
	if len(totals) > 0 {
		top = totals[0].Name
	}

	totalCash, _ := cash.Float64()
	totalStock, _ := stockValue.Float64()
	netWorth, _ := cash.Add(stockValue).Float64()
	monthlyIncome, _ := income.Float64()
	monthlyExpense, _ := expense.Float64()

	return Report{
		TotalCash:          totalCash,
		TotalStockValue:    totalStock,
		NetWorth:           netWorth,
		MonthlyIncome:      monthlyIncome,
		MonthlyExpense:     monthlyExpense,
		ExpenseByCategory:  totals,
		TopExpenseCategory: top,
	}
}
