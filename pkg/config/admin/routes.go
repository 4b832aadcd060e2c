// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/moov-io/base/admin"
	"github.com/moov-io/sepagate/pkg/config"
)

// RegisterRoutes serves the effective config on GET /config unless disabled.
// Secrets are masked by the config types' JSON marshaling.
func RegisterRoutes(svc *admin.Server, cfg *config.Config) {
	if cfg.Admin.DisableConfigEndpoint {
		return
	}
	svc.AddHandler("/config", marshalConfig(cfg))
}

// marshalConfig writes the whole config, or one top-level section with
// ?section=sepa (case-insensitive).
func marshalConfig(cfg *config.Config) http.HandlerFunc {
	sections := map[string]interface{}{
		"logging":  cfg.Logging,
		"http":     cfg.Http,
		"admin":    cfg.Admin,
		"database": cfg.Database,
		"sepa":     cfg.SEPA,
		"pipeline": cfg.Pipeline,
		"tracing":  cfg.Tracing,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body interface{} = cfg
		if name := strings.ToLower(r.URL.Query().Get("section")); name != "" {
			section, ok := sections[name]
			if !ok {
				http.Error(w, "unknown config section", http.StatusNotFound)
				return
			}
			body = section
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(body)
	}
}
