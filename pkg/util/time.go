// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package util

import (
	"time"
)

const (
	// ISODateFormat is the ISO 8601 calendar date used by ISO 20022 ISODate fields.
	ISODateFormat = "2006-01-02"

	// ISODateTimeFormat is the local date-time form accepted by every pain flavor
	// for ISODateTime fields.
	ISODateTimeFormat = "2006-01-02T15:04:05"
)

// FirstParsedTime attempts to parse v with all provided formats in order.
// The first parsed time.Time that doesn't error is returned.
func FirstParsedTime(v string, formats ...string) time.Time {
	for i := range formats {
		if tt, err := time.Parse(formats[i], v); err == nil {
			return tt
		}
	}
	return time.Time{}
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
