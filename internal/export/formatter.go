package export

import "gastos/internal/core"

// Fixed sheet layout: a merged title, one header row, one row per category
// in ledger order, a separator, then the three summary rows.
const (
	Title = "CONTROLE DE GASTOS"

	HeaderItem    = "ITEM"
	HeaderValue   = "VALUE"
	HeaderBalance = "BALANCE"
	HeaderSpent   = "SPENT"

	LabelTotalBudget  = "TOTAL BUDGET"
	LabelTotalSpent   = "TOTAL SPENT"
	LabelTotalBalance = "TOTAL BALANCE"

	currencyFormat    = "R$ #,##0.00"
	currencyRedNegFmt = "R$ #,##0.00;[Red]-R$ #,##0.00"
)

var (
	titleStyle   = Style{Bold: true, FontSize: 14, FillColor: "E0E0E0", Center: true}
	headerStyle  = Style{Bold: true, FillColor: "F0F0F0"}
	valueStyle   = Style{NumberFormat: currencyFormat}
	balanceStyle = Style{FillColor: "D9EDC8", NumberFormat: currencyRedNegFmt}
	spentStyle   = Style{FillColor: "FEEFB3", NumberFormat: currencyRedNegFmt}
	totalStyle   = Style{Bold: true, FillColor: "F0F0F0", NumberFormat: currencyRedNegFmt}
)

// BuildGrid lays out the export for one spreadsheet: its categories in
// ledger order with their aggregated figures, then the grand totals. The
// result is a passive structure; writing it anywhere is the caller's job.
func BuildGrid(spreadsheetName string, totals core.Totals) Grid {
	g := Grid{
		Sheet:     spreadsheetName,
		ColWidths: []float64{20, 15, 15, 15},
	}

	// Title merged across the three value columns.
	g.Rows = append(g.Rows, []Cell{
		emptyCell(),
		stringCell(Title, titleStyle),
		emptyCell(),
		emptyCell(),
	})
	g.Merges = append(g.Merges, Merge{StartRow: 0, StartCol: 1, EndRow: 0, EndCol: 3})

	g.Rows = append(g.Rows, []Cell{
		stringCell(HeaderItem, headerStyle),
		stringCell(HeaderValue, headerStyle),
		stringCell(HeaderBalance, headerStyle),
		stringCell(HeaderSpent, headerStyle),
	})

	for _, ct := range totals.Categories {
		g.Rows = append(g.Rows, []Cell{
			stringCell(ct.Name, Style{}),
			numberCell(ct.Budget.Float(), valueStyle),
			numberCell(ct.Balance.Float(), balanceStyle),
			numberCell(ct.Spent.Float(), spentStyle),
		})
	}

	// Blank separator before the summary block.
	g.Rows = append(g.Rows, []Cell{})

	// The budget total keeps the original column layout: merged label in
	// the first two columns, value under the balance column.
	budgetRow := len(g.Rows)
	g.Rows = append(g.Rows, []Cell{
		stringCell(LabelTotalBudget, headerStyle),
		emptyCell(),
		numberCell(totals.TotalBudget.Float(), totalStyle),
		emptyCell(),
	})
	g.Merges = append(g.Merges, Merge{StartRow: budgetRow, StartCol: 0, EndRow: budgetRow, EndCol: 1})

	g.Rows = append(g.Rows, []Cell{
		stringCell(LabelTotalSpent, headerStyle),
		numberCell(totals.TotalSpent.Float(), totalStyle),
		emptyCell(),
		emptyCell(),
	})
	g.Rows = append(g.Rows, []Cell{
		stringCell(LabelTotalBalance, headerStyle),
		numberCell(totals.TotalBalance.Float(), totalStyle),
		emptyCell(),
		emptyCell(),
	})

	return g
}
