// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var countPrinter = message.NewPrinter(language.English)

// FormatCount renders a (possibly fractional) event count with thousands
// separators and no decimals, e.g. 1234567.8 -> "1,234,568".
func FormatCount(n float64) string {
	return countPrinter.Sprintf("%.0f", n)
}

// FormatFloat renders a measurement value with up to six significant
// digits, the precision shown in result tables.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// FormatCell renders an arbitrary table cell value.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		return FormatFloat(val)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// CellNumber extracts a numeric sort key from a cell value. The second
// return is false for values that do not order numerically.
func CellNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
