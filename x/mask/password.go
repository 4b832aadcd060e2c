// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package mask hides secrets and account identifiers before they reach
// logs or the admin config endpoint.
package mask

import (
	"strings"
)

// Password keeps the outer runes of s and stars the rest, so "secret" becomes "s****t".
func Password(s string) string {
	runes := []rune(s)
	if len(runes) < 3 {
		return "**"
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}

// AccountNumber shows only the country prefix and the last four characters
// of an IBAN or other account number. Whitespace is dropped first.
func AccountNumber(s string) string {
	s = strings.Join(strings.Fields(s), "")
	runes := []rune(s)
	if len(runes) <= 6 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-6) + string(runes[len(runes)-4:])
}
