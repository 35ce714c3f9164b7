// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package options

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBool accepts true/false, yes/no, on/off and 1/0, case-insensitive.
func ParseBool(raw string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return nil, fmt.Errorf("not a valid boolean: %q", raw)
}

// ParseFloat accepts any decimal or scientific float literal.
func ParseFloat(raw string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("not a valid number: %q", raw)
	}
	return f, nil
}

// ParseInt accepts a base-10 integer.
func ParseInt(raw string) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("not a valid integer: %q", raw)
	}
	return n, nil
}

// ParseString accepts anything.
func ParseString(raw string) (any, error) {
	return raw, nil
}

// ParseChoice builds a parse function accepting exactly one of the given
// values, case-insensitive, stored in canonical casing.
func ParseChoice(choices ...string) ParseFunc {
	return func(raw string) (any, error) {
		v := strings.TrimSpace(raw)
		for _, c := range choices {
			if strings.EqualFold(v, c) {
				return c, nil
			}
		}
		return nil, fmt.Errorf("must be one of %s", strings.Join(choices, ", "))
	}
}
