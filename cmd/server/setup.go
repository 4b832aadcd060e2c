// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/moov-io/base/admin"
	"github.com/moov-io/sepagate"
	"github.com/moov-io/sepagate/pkg/config"
	cfgadmin "github.com/moov-io/sepagate/pkg/config/admin"
	"github.com/moov-io/sepagate/pkg/mandates"
	"github.com/moov-io/sepagate/pkg/sequences"
	"github.com/moov-io/sepagate/pkg/validation"
	"github.com/moov-io/sepagate/pkg/validation/xsd"
)

// readConfig loads path, or the defaults with a stderr logger when path is empty.
func readConfig(path string) *config.Config {
	cfg, err := config.FromFile(path)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setupValidator chains the structural checks with the published schemas
// when a schema directory is configured.
func setupValidator(cfg config.Validation) (validation.Validator, error) {
	var chain validation.Chain
	if cfg.Structural {
		chain = append(chain, validation.NewStructural())
	}
	if cfg.SchemaDirectory != "" {
		v, err := xsd.New(cfg.SchemaDirectory)
		if err != nil {
			return nil, err
		}
		chain = append(chain, v)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no validators enabled")
	}
	return chain, nil
}

// setupAdmin serves GET /version, the database liveness check and the
// masked config on the admin port.
func setupAdmin(cfg *config.Config, db *sql.DB) *admin.Server {
	svc := admin.NewServer(cfg.Admin.BindAddress)
	svc.AddVersionHandler(sepagate.Version)
	svc.AddLivenessCheck("database", db.Ping)
	cfgadmin.RegisterRoutes(svc, cfg)
	return svc
}

// setupMandates attaches the configured identification sequence, creating
// its row on first start.
func setupMandates(ctx context.Context, cfg *config.Config, db *sql.DB, numbers mandates.AccountNumbers) (*mandates.SQLRepo, error) {
	repo := mandates.NewRepo(cfg.Logger, db, numbers)

	key := cfg.SEPA.MandateSequence
	if key == "" {
		return repo, nil
	}
	gen := sequences.NewGenerator(cfg.Logger, db)
	if err := gen.Ensure(ctx, key, cfg.SEPA.MandatePrefix, cfg.SEPA.MandatePadding); err != nil {
		return nil, fmt.Errorf("problem setting up mandate sequence %q: %v", key, err)
	}
	return repo.WithSequence(gen, key), nil
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: handler,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
