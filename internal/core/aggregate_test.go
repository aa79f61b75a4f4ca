package core

import (
	"reflect"
	"testing"
)

func cents(v int64) Money { return Money{Cents: v} }

func TestAggregateScenarioA(t *testing.T) {
	categories := []Category{
		{Name: "Food", Budget: cents(50000)},
		{Name: "Fuel", Budget: cents(20000)},
	}
	expenses := []Expense{
		{ID: 1, Category: "Food", Amount: cents(15000)},
		{ID: 2, Category: "Fuel", Amount: cents(5000)},
		{ID: 3, Category: "Fuel", Amount: cents(3000)},
	}

	got := Aggregate(categories, expenses)

	want := Totals{
		Categories: []CategoryTotal{
			{Name: "Food", Budget: cents(50000), Spent: cents(15000), Balance: cents(35000)},
			{Name: "Fuel", Budget: cents(20000), Spent: cents(8000), Balance: cents(12000)},
		},
		TotalBudget:  cents(70000),
		TotalSpent:   cents(23000),
		TotalBalance: cents(47000),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected totals:\n got %+v\nwant %+v", got, want)
	}
}

func TestAggregateOrphanAsymmetry(t *testing.T) {
	categories := []Category{{Name: "Food", Budget: cents(50000)}}
	expenses := []Expense{
		{ID: 1, Category: "Food", Amount: cents(10000)},
		{ID: 2, Category: "Travel", Amount: cents(5000)}, // orphan
	}

	got := Aggregate(categories, expenses)

	// Orphans are excluded from the category sum but included in the grand
	// total, so the two spent figures disagree on purpose.
	if got.Categories[0].Spent != cents(10000) {
		t.Fatalf("Food.Spent: expected 10000, got %d", got.Categories[0].Spent.Cents)
	}
	if got.TotalSpent != cents(15000) {
		t.Fatalf("TotalSpent: expected 15000, got %d", got.TotalSpent.Cents)
	}
	if got.TotalBalance != cents(35000) {
		t.Fatalf("TotalBalance: expected 35000, got %d", got.TotalBalance.Cents)
	}
}

func TestAggregateCaseSensitiveMatch(t *testing.T) {
	categories := []Category{{Name: "Food", Budget: cents(50000)}}
	expenses := []Expense{{ID: 1, Category: "food", Amount: cents(10000)}}

	got := Aggregate(categories, expenses)

	// Matching is exact; a case mismatch makes the expense an orphan.
	if got.Categories[0].Spent != cents(0) {
		t.Fatalf("expected case mismatch to orphan the expense, spent %d", got.Categories[0].Spent.Cents)
	}
	if got.TotalSpent != cents(10000) {
		t.Fatalf("TotalSpent: expected 10000, got %d", got.TotalSpent.Cents)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	categories := []Category{
		{Name: "A", Budget: cents(123)},
		{Name: "B", Budget: cents(456)},
	}
	expenses := []Expense{
		{ID: 1, Category: "A", Amount: cents(7)},
		{ID: 2, Category: "B", Amount: cents(11)},
		{ID: 3, Category: "Gone", Amount: cents(13)},
	}

	first := Aggregate(categories, expenses)
	second := Aggregate(categories, expenses)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregation not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestAggregateProperties(t *testing.T) {
	categories := []Category{
		{Name: "Rent", Budget: cents(100000)},
		{Name: "Food", Budget: cents(50000)},
		{Name: "Fun", Budget: cents(0)},
	}
	expenses := []Expense{
		{ID: 1, Category: "Rent", Amount: cents(40000)},
		{ID: 2, Category: "Food", Amount: cents(1234)},
		{ID: 3, Category: "Fun", Amount: cents(999)},
		{ID: 4, Category: "Old", Amount: cents(500)},
	}

	got := Aggregate(categories, expenses)

	var budgetSum Money
	for _, c := range categories {
		budgetSum = budgetSum.Add(c.Budget)
	}
	if got.TotalBudget != budgetSum {
		t.Fatalf("TotalBudget %d != sum of budgets %d", got.TotalBudget.Cents, budgetSum.Cents)
	}

	for _, ct := range got.Categories {
		if ct.Balance != ct.Budget.Sub(ct.Spent) {
			t.Fatalf("%s: balance %d != budget %d - spent %d",
				ct.Name, ct.Balance.Cents, ct.Budget.Cents, ct.Spent.Cents)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, nil)
	if len(got.Categories) != 0 || got.TotalBudget.Cents != 0 || got.TotalSpent.Cents != 0 {
		t.Fatalf("unexpected totals for empty ledgers: %+v", got)
	}
}
