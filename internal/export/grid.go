// Package export turns aggregated spreadsheet state into a styled tabular
// grid and renders it to an xlsx file.
package export

import (
	"strings"
	"unicode"
)

type CellType int

const (
	CellEmpty CellType = iota
	CellString
	CellNumber
)

type (
	// Style is the presentation metadata a cell may carry. The zero value
	// means unstyled.
	Style struct {
		Bold         bool
		FontSize     float64
		FillColor    string // RGB hex, e.g. "E0E0E0"
		NumberFormat string
		Center       bool
	}

	// Cell is one typed grid cell.
	Cell struct {
		Type   CellType
		Text   string
		Number float64
		Style  Style
	}

	// Merge is an inclusive zero-based cell range rendered as one cell.
	Merge struct {
		StartRow, StartCol int
		EndRow, EndCol     int
	}

	// Grid is the passive output of the formatter: rows of typed cells
	// plus merge and layout metadata. It performs no I/O; a writer turns
	// it into bytes.
	Grid struct {
		Sheet     string
		Rows      [][]Cell
		Merges    []Merge
		ColWidths []float64
	}
)

func emptyCell() Cell {
	return Cell{Type: CellEmpty}
}

func stringCell(text string, style Style) Cell {
	return Cell{Type: CellString, Text: text, Style: style}
}

func numberCell(v float64, style Style) Cell {
	return Cell{Type: CellNumber, Number: v, Style: style}
}

// Filename applies the download naming convention: whitespace becomes
// underscores, with the fixed _gastos.xlsx suffix.
func Filename(spreadsheetName string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, spreadsheetName)
	return mapped + "_gastos.xlsx"
}
