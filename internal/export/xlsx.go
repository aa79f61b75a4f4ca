package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Writer renders grids to xlsx workbooks. It is the tabular file writer
// collaborator; the formatter stays free of I/O.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Save renders the grid and writes the workbook to filename.
func (w *Writer) Save(grid Grid, filename string) error {
	f, err := w.render(grid)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("save workbook %s: %w", filename, err)
	}
	return nil
}

// WriteTo renders the grid and streams the workbook, e.g. for downloads.
func (w *Writer) WriteTo(grid Grid, out io.Writer) error {
	f, err := w.render(grid)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (w *Writer) render(grid Grid) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := sheetName(grid.Sheet)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	styles := make(map[Style]int)
	for r, row := range grid.Rows {
		for c, cell := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("cell %d,%d: %w", r, c, err)
			}
			switch cell.Type {
			case CellString:
				if err := f.SetCellValue(sheet, name, cell.Text); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", name, err)
				}
			case CellNumber:
				if err := f.SetCellValue(sheet, name, cell.Number); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", name, err)
				}
			case CellEmpty:
				if cell.Style == (Style{}) {
					continue
				}
			}
			if cell.Style != (Style{}) {
				id, err := w.styleID(f, styles, cell.Style)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellStyle(sheet, name, name, id); err != nil {
					return nil, fmt.Errorf("style cell %s: %w", name, err)
				}
			}
		}
	}

	for _, m := range grid.Merges {
		start, err := excelize.CoordinatesToCellName(m.StartCol+1, m.StartRow+1)
		if err != nil {
			return nil, fmt.Errorf("merge start: %w", err)
		}
		end, err := excelize.CoordinatesToCellName(m.EndCol+1, m.EndRow+1)
		if err != nil {
			return nil, fmt.Errorf("merge end: %w", err)
		}
		if err := f.MergeCell(sheet, start, end); err != nil {
			return nil, fmt.Errorf("merge %s:%s: %w", start, end, err)
		}
	}

	for i, width := range grid.ColWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return nil, fmt.Errorf("width column %s: %w", col, err)
		}
	}

	return f, nil
}

func (w *Writer) styleID(f *excelize.File, cache map[Style]int, s Style) (int, error) {
	if id, ok := cache[s]; ok {
		return id, nil
	}

	style := &excelize.Style{}
	if s.Bold || s.FontSize > 0 {
		style.Font = &excelize.Font{Bold: s.Bold, Size: s.FontSize}
	}
	if s.FillColor != "" {
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{"#" + s.FillColor}, Pattern: 1}
	}
	if s.Center {
		style.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	}
	if s.NumberFormat != "" {
		fmtStr := s.NumberFormat
		style.CustomNumFmt = &fmtStr
	}

	id, err := f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	cache[s] = id
	return id, nil
}

// sheetName fits a spreadsheet name into xlsx tab constraints: at most 31
// characters, none of the reserved ones.
func sheetName(name string) string {
	if name == "" {
		return "Sheet1"
	}
	replacer := strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "-", "*", "-", "[", "(", "]", ")")
	name = replacer.Replace(name)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
