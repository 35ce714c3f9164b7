// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calibration

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jeranaias/specterm/internal/util"
)

// ListEntry is one record of a calibration list file: a spectrum name and
// its polynomial.
type ListEntry struct {
	Name string
	Cal  Calibration
	Line int
}

// LineError reports a malformed calibration list line that was skipped.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// FromFile reads a single calibration's coefficients from a file:
// whitespace-separated floats, "#" starts a comment.
func FromFile(path string) (Calibration, error) {
	data, err := os.ReadFile(util.ExpandUser(path))
	if err != nil {
		return Calibration{}, err
	}
	var coeffs []float64
	for _, line := range strings.Split(string(data), "\n") {
		line, _, _ = strings.Cut(line, "#")
		for _, field := range strings.Fields(line) {
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Calibration{}, fmt.Errorf("bad coefficient %q in %s", field, path)
			}
			coeffs = append(coeffs, f)
		}
	}
	if len(coeffs) == 0 {
		return Calibration{}, fmt.Errorf("no coefficients in %s", path)
	}
	return New(coeffs...), nil
}

// ReadList reads a calibration list file. Each record is one line of the
// form "<spectrum-name>: <c0> <c1> ...", "#" starts a comment and blank
// lines are ignored. Malformed lines are skipped and reported, never
// fatal; only failure to open the file is an error.
func ReadList(path string) ([]ListEntry, []LineError, error) {
	f, err := os.Open(util.ExpandUser(path))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var entries []ListEntry
	var skipped []LineError

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line, _, _ := strings.Cut(scanner.Text(), "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, rest, found := strings.Cut(line, ":")
		if !found {
			skipped = append(skipped, LineError{Line: lineno, Err: fmt.Errorf("missing ':'")})
			continue
		}
		var coeffs []float64
		bad := false
		for _, field := range strings.Fields(rest) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				skipped = append(skipped, LineError{Line: lineno, Err: fmt.Errorf("bad coefficient %q", field)})
				bad = true
				break
			}
			coeffs = append(coeffs, v)
		}
		if bad {
			continue
		}
		if len(coeffs) == 0 {
			skipped = append(skipped, LineError{Line: lineno, Err: fmt.Errorf("no coefficients")})
			continue
		}
		entries = append(entries, ListEntry{
			Name: strings.TrimSpace(name),
			Cal:  New(coeffs...),
			Line: lineno,
		})
	}
	if err := scanner.Err(); err != nil {
		return entries, skipped, err
	}
	return entries, skipped, nil
}

// WriteList writes entries in the calibration list format, atomically.
func WriteList(path string, entries []ListEntry) error {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Name)
		b.WriteString(": ")
		b.WriteString(e.Cal.String())
		b.WriteString("\n")
	}
	return util.AtomicWriteFile(util.ExpandUser(path), []byte(b.String()), 0644)
}
