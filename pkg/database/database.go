// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/moov-io/sepagate/pkg/config"

	"github.com/go-kit/kit/log"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	"github.com/lopezator/migrator"
)

// New establishes a database connection according to the configured provider.
// MySQL is preferred when both providers are configured.
func New(ctx context.Context, logger log.Logger, cfg config.Database) (*sql.DB, error) {
	if cfg.MySQL != nil {
		logger.Log("database", "looking for mysql database provider")
		my := cfg.MySQL
		return mysqlConnection(logger, my.Username, my.GetPassword(), my.Address, my.Database).Connect(ctx)
	}
	if cfg.SQLite != nil {
		logger.Log("database", "looking for sqlite database provider")
		return sqliteConnection(logger, getSqlitePath(cfg.SQLite)).Connect(ctx)
	}
	return nil, fmt.Errorf("unknown database config: %#v", cfg)
}

func execsql(name, raw string) *migrator.MigrationNoTx {
	return &migrator.MigrationNoTx{
		Name: name,
		Func: func(db *sql.DB) error {
			_, err := db.Exec(raw)
			return err
		},
	}
}

// recordStats publishes the pool's connection counts every second until ctx is done.
func recordStats(ctx context.Context, db *sql.DB, gauge *kitprom.Gauge) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			stats := db.Stats()
			for state, n := range map[string]int{
				"idle":  stats.Idle,
				"inuse": stats.InUse,
				"open":  stats.OpenConnections,
			} {
				gauge.With("state", state).Set(float64(n))
			}
		}
	}
}

// UniqueViolation returns true when the provided error matches a database error
// for duplicate entries (violating a unique table constraint).
func UniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return MySQLUniqueViolation(err) || SqliteUniqueViolation(err)
}
