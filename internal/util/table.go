// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Row is one table row: cell values keyed by column name. Missing columns
// render as empty cells.
type Row map[string]any

// Table renders result listings (fit lists, spectrum lists, integrals) as
// aligned text. Column order is fixed by the caller; rows may be sorted by
// any column, numerically when the column's values allow it.
type Table struct {
	Columns []string
	Rows    []Row
	Header  string
	Footer  string
	Style   string // "simple" or "grid"
}

// NewTable creates a table over the given column set.
func NewTable(columns []string, rows []Row) *Table {
	return &Table{Columns: columns, Rows: rows, Style: "simple"}
}

// SortBy orders rows by the named column, case-insensitive. An unknown key
// is an error naming the valid columns. Numeric columns sort numerically;
// anything else sorts as text. Cells missing the key sort first.
func (t *Table) SortBy(key string, reverse bool) error {
	if key == "" {
		return nil
	}
	col := ""
	for _, c := range t.Columns {
		if strings.EqualFold(c, key) {
			col = c
			break
		}
	}
	if col == "" {
		return fmt.Errorf("no such attribute: %s (valid attributes are: %s)",
			key, strings.Join(t.Columns, ", "))
	}

	sort.SliceStable(t.Rows, func(i, j int) bool {
		less := rowLess(t.Rows[i][col], t.Rows[j][col])
		if reverse {
			return rowLess(t.Rows[j][col], t.Rows[i][col])
		}
		return less
	})
	return nil
}

func rowLess(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	na, aok := CellNumber(a)
	nb, bok := CellNumber(b)
	if aok && bok {
		return na < nb
	}
	return FormatCell(a) < FormatCell(b)
}

// String renders the table.
func (t *Table) String() string {
	widths := make([]int, len(t.Columns))
	cells := make([][]string, len(t.Rows))
	numeric := make([]bool, len(t.Columns))

	for i, col := range t.Columns {
		widths[i] = runewidth.StringWidth(col)
		numeric[i] = true
	}
	for ri, row := range t.Rows {
		cells[ri] = make([]string, len(t.Columns))
		for ci, col := range t.Columns {
			s := FormatCell(row[col])
			cells[ri][ci] = s
			if w := runewidth.StringWidth(s); w > widths[ci] {
				widths[ci] = w
			}
			if _, ok := CellNumber(row[col]); !ok && row[col] != nil {
				numeric[ci] = false
			}
		}
	}

	sep := "  "
	if t.Style == "grid" {
		sep = " | "
	}

	var b strings.Builder
	if t.Header != "" {
		b.WriteString(t.Header)
		b.WriteString("\n")
	}

	line := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		line[i] = PadWidth(col, widths[i])
	}
	b.WriteString(strings.TrimRight(strings.Join(line, sep), " "))
	b.WriteString("\n")

	for i := range t.Columns {
		line[i] = strings.Repeat("-", widths[i])
	}
	rule := strings.Join(line, sep)
	if t.Style == "grid" {
		rule = strings.ReplaceAll(rule, " | ", "-+-")
	}
	b.WriteString(rule)
	b.WriteString("\n")

	for _, row := range cells {
		for i, cell := range row {
			if numeric[i] {
				line[i] = PadLeftWidth(cell, widths[i])
			} else {
				line[i] = PadWidth(cell, widths[i])
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(line, sep), " "))
		b.WriteString("\n")
	}

	if t.Footer != "" {
		b.WriteString(t.Footer)
		b.WriteString("\n")
	}
	return b.String()
}
