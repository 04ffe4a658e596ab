package domain

// DefaultCategories is the static category set seeded once per process.
// Transactions reference these by name, which carries the same
// no-cascade caveat as the account reference.
var DefaultCategories = []Category{
	{ID: "c1", Name: "Salary", Type: TypeIncome, Color: "#10b981"},
	{ID: "c2", Name: "Investment Income", Type: TypeIncome, Color: "#3b82f6"},
	{ID: "c3", Name: "Food", Type: TypeExpense, Color: "#f59e0b"},
	{ID: "c4", Name: "Transport", Type: TypeExpense, Color: "#6366f1"},
	{ID: "c5", Name: "Housing", Type: TypeExpense, Color: "#ef4444"},
	{ID: "c6", Name: "Entertainment", Type: TypeExpense, Color: "#ec4899"},
	{ID: "c7", Name: "Other", Type: TypeExpense, Color: "#94a3b8"},
}

// CategoryByName resolves a category name against the default set. The bool
// result is false for names with no match, including categories that were
// renamed or never existed; callers treat that as an uncategorised entry
// rather than an error.
func CategoryByName(name string) (Category, bool) {
	for _, c := range DefaultCategories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
