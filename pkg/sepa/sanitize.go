// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxIDLength         = 35
	MaxNameLength       = 70
	MaxRemittanceLength = 140

	// NotProvided fills identifiers the bank doesn't need, e.g. a missing BIC.
	NotProvided = "NOTPROVIDED"
)

// allowed reports if r belongs to the Latin character set every SEPA bank accepts.
func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("/-?:().,'+ ", r)
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Text converts s into the SEPA character set and shortens it to max characters.
// Accents are dropped and other characters outside the set become spaces.
func Text(s string, max int) string {
	s = stripAccents(s)
	s = strings.Map(func(r rune) rune {
		if allowed(r) {
			return r
		}
		return ' '
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, max)
}

// ID converts s into an identifier: SEPA characters without spaces, at most 35
// long, not starting or ending with '/' and never containing "//".
func ID(s string) string {
	s = stripAccents(s)
	s = strings.Map(func(r rune) rune {
		if allowed(r) && r != ' ' {
			return r
		}
		return -1
	}, s)
	for strings.Contains(s, "//") {
		s = strings.Replace(s, "//", "/", -1)
	}
	s = strings.Trim(truncate(strings.Trim(s, "/"), MaxIDLength), "/")
	if s == "" {
		return NotProvided
	}
	return s
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
