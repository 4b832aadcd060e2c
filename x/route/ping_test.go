// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package route

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func TestPingRoute(t *testing.T) {
	var buf bytes.Buffer
	router := mux.NewRouter()
	PingRoute(log.NewLogfmtLogger(&buf), router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "PONG", w.Body.String())
	require.Empty(t, buf.String())

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "ping-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, buf.String(), "requestID=ping-1")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/ping", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReadPathID(t *testing.T) {
	router := mux.NewRouter()
	var got string
	router.Methods("GET").Path("/mandates/{mandateID}").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ReadPathID("mandateID", r)
		if ReadPathID("missing", r) != "" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/mandates/%20abc%20", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "abc", got)
}
