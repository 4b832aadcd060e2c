// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package route

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// ReadPathID returns the named path variable with surrounding whitespace
// removed, or an empty string when the route doesn't declare it.
func ReadPathID(name string, r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)[name])
}
