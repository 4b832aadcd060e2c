// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package util

import (
	"strings"
)

// Or returns the first option that isn't blank, trimmed. Config values
// read from the environment are layered over file values with it.
func Or(options ...string) string {
	for _, opt := range options {
		if opt = strings.TrimSpace(opt); opt != "" {
			return opt
		}
	}
	return ""
}
