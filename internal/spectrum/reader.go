// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package spectrum

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/blake3"
)

// ===== FORMATS =====

// A readerFunc parses the non-comment lines of a spectrum file into
// per-channel counts.
type readerFunc func(lines []line) ([]float64, error)

// line is one payload line of a spectrum file together with its
// 1-based position, kept for error reporting.
type line struct {
	num  int
	text string
}

var readers = map[string]readerFunc{
	"txt": readTxt,
	"xy":  readXY,
}

// Formats lists the supported spectrum file formats, sorted.
func Formats() []string {
	names := make([]string, 0, len(readers))
	for name := range readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitSpec splits a load expression of the form "path'format" at the
// last apostrophe. An expression without an apostrophe is a bare path
// with an empty format, which requests auto-detection.
func SplitSpec(spec string) (path, format string) {
	if i := strings.LastIndex(spec, "'"); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}

// ===== READING =====

// ReadError reports a failed spectrum load together with the path and
// format it was attempted with.
type ReadError struct {
	Path   string
	Format string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("could not load %s'%s: %v", e.Path, e.Format, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ReadFile reads a spectrum file into a histogram and returns the raw
// file fingerprint alongside it. Files ending in .gz are transparently
// decompressed. An empty format triggers auto-detection from the first
// payload line.
func ReadFile(path, format string) (*Histogram, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", &ReadError{Path: path, Format: format, Err: err}
	}
	sum := blake3.Sum256(raw)
	fingerprint := fmt.Sprintf("%x", sum[:8])

	text := raw
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, "", &ReadError{Path: path, Format: format, Err: err}
		}
		text, err = io.ReadAll(zr)
		if cerr := zr.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, "", &ReadError{Path: path, Format: format, Err: err}
		}
	}

	lines := payloadLines(text)
	if format == "" {
		format = detectFormat(lines)
	}
	read, ok := readers[format]
	if !ok {
		err := fmt.Errorf("unknown format %q (supported: %s)", format, strings.Join(Formats(), ", "))
		return nil, "", &ReadError{Path: path, Format: format, Err: err}
	}
	counts, err := read(lines)
	if err != nil {
		return nil, "", &ReadError{Path: path, Format: format, Err: err}
	}
	return NewHistogram(counts), fingerprint, nil
}

// payloadLines strips comments and blank lines, keeping original line
// numbers for diagnostics.
func payloadLines(data []byte) []line {
	var out []line
	for num, text := range strings.Split(string(data), "\n") {
		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, line{num: num + 1, text: text})
	}
	return out
}

// detectFormat guesses the file format from the column count of the
// first payload line: one column is a plain counts file, two columns a
// channel/counts file. Anything else falls through to the txt reader,
// which reports the offending line.
func detectFormat(lines []line) string {
	if len(lines) == 0 {
		return "txt"
	}
	if len(strings.Fields(lines[0].text)) == 2 {
		return "xy"
	}
	return "txt"
}

// readTxt parses one counts value per line, channel numbers implied by
// line order.
func readTxt(lines []line) ([]float64, error) {
	counts := make([]float64, 0, len(lines))
	for _, ln := range lines {
		fields := strings.Fields(ln.text)
		if len(fields) != 1 {
			return nil, fmt.Errorf("line %d: expected a single counts value, got %d fields", ln.num, len(fields))
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad counts value %q", ln.num, fields[0])
		}
		counts = append(counts, v)
	}
	return counts, nil
}

// readXY parses "channel counts" pairs. Channels may appear in any
// order, gaps are zero-filled.
func readXY(lines []line) ([]float64, error) {
	type pair struct {
		ch int
		v  float64
	}
	pairs := make([]pair, 0, len(lines))
	maxCh := -1
	for _, ln := range lines {
		fields := strings.Fields(ln.text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected channel and counts, got %d fields", ln.num, len(fields))
		}
		ch, err := strconv.Atoi(fields[0])
		if err != nil || ch < 0 {
			return nil, fmt.Errorf("line %d: bad channel %q", ln.num, fields[0])
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad counts value %q", ln.num, fields[1])
		}
		pairs = append(pairs, pair{ch: ch, v: v})
		if ch > maxCh {
			maxCh = ch
		}
	}
	counts := make([]float64, maxCh+1)
	for _, p := range pairs {
		counts[p.ch] = p.v
	}
	return counts, nil
}
