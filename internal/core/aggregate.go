package core

type (
	// CategoryTotal is the derived budget/spent/balance triple for one
	// category. Never persisted; recomputed on every read.
	CategoryTotal struct {
		Name    string
		Budget  Money
		Spent   Money
		Balance Money
	}

	// Totals is the aggregate view over both ledgers.
	Totals struct {
		Categories   []CategoryTotal
		TotalBudget  Money
		TotalSpent   Money
		TotalBalance Money
	}
)

// Aggregate computes per-category and grand totals for a ledger pair.
//
// Expenses are matched to categories by exact name. An expense whose
// category no longer exists (an orphan) is excluded from every category's
// spent figure but still counts toward TotalSpent, so the sum of category
// spent values and TotalSpent can legitimately disagree. That asymmetry is
// intentional and load-bearing for the exported summary block.
//
// The function is pure: same inputs give bit-identical outputs.
func Aggregate(categories []Category, expenses []Expense) Totals {
	totals := Totals{Categories: make([]CategoryTotal, len(categories))}

	index := make(map[string]int, len(categories))
	for i, c := range categories {
		totals.Categories[i] = CategoryTotal{Name: c.Name, Budget: c.Budget}
		index[c.Name] = i
		totals.TotalBudget = totals.TotalBudget.Add(c.Budget)
	}

	for _, e := range expenses {
		if i, ok := index[e.Category]; ok {
			totals.Categories[i].Spent = totals.Categories[i].Spent.Add(e.Amount)
		}
		totals.TotalSpent = totals.TotalSpent.Add(e.Amount)
	}

	for i := range totals.Categories {
		totals.Categories[i].Balance = totals.Categories[i].Budget.Sub(totals.Categories[i].Spent)
	}
	totals.TotalBalance = totals.TotalBudget.Sub(totals.TotalSpent)

	return totals
}
