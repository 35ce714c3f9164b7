// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package spectrum

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/jeranaias/specterm/internal/util"
)

// WriteFile writes a histogram to path in the given format, atomically.
// An empty format defaults to txt. Paths ending in .gz are compressed.
func WriteFile(path, format string, hist *Histogram) error {
	if format == "" {
		format = "txt"
	}
	var buf bytes.Buffer
	switch format {
	case "txt":
		for i := 0; i < hist.NBins(); i++ {
			buf.WriteString(formatCounts(hist.At(i)))
			buf.WriteByte('\n')
		}
	case "xy":
		for i := 0; i < hist.NBins(); i++ {
			buf.WriteString(strconv.Itoa(i))
			buf.WriteByte(' ')
			buf.WriteString(formatCounts(hist.At(i)))
			buf.WriteByte('\n')
		}
	default:
		return fmt.Errorf("unknown format %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}

	data := buf.Bytes()
	if strings.HasSuffix(path, ".gz") {
		var zbuf bytes.Buffer
		zw := gzip.NewWriter(&zbuf)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		data = zbuf.Bytes()
	}
	return util.AtomicWriteFile(path, data, 0o644)
}

// formatCounts renders a counts value without a spurious fraction for
// whole numbers, so integer histograms round-trip byte for byte.
func formatCounts(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
