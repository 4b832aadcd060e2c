// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package route

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	moovhttp "github.com/moov-io/base/http"
)

// PingRoute answers GET /ping with PONG. It never touches the database,
// liveness of dependencies is reported on the admin server instead.
func PingRoute(logger log.Logger, r *mux.Router) {
	r.Methods("GET").Path("/ping").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if requestID := moovhttp.GetRequestID(req); requestID != "" {
			logger.Log("route", "ping", "requestID", requestID)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("PONG"))
	})
}
