// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sequences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/moov-io/sepagate/pkg/database"

	"github.com/go-kit/kit/log"
)

var (
	ErrUnknownSequence = errors.New("unknown sequence")

	// maxAttempts bounds how often Next retries after losing a race for the same key.
	maxAttempts = 5
)

// Generator hands out unique strings for a sequence key, e.g. MANDATE-000042
type Generator interface {
	Ensure(ctx context.Context, key string, prefix string, padding int) error
	Next(ctx context.Context, key string) (string, error)
}

func NewGenerator(logger log.Logger, db *sql.DB) *SQLGenerator {
	return &SQLGenerator{db: db, logger: logger}
}

type SQLGenerator struct {
	db     *sql.DB
	logger log.Logger
}

// Ensure creates the sequence starting at 1 unless it already exists.
func (g *SQLGenerator) Ensure(ctx context.Context, key string, prefix string, padding int) error {
	if key == "" {
		return errors.New("missing sequence key")
	}
	query := `insert into sequences (sequence_key, prefix, padding, next_value) values (?, ?, ?, 1);`
	stmt, err := g.db.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, key, prefix, padding); err != nil {
		if database.UniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("ensure sequence=%q: %v", key, err)
	}
	g.logger.Log("sequences", fmt.Sprintf("created sequence %q", key))
	return nil
}

// Next returns the formatted current value of key and advances it. Concurrent
// callers never receive the same value.
func (g *SQLGenerator) Next(ctx context.Context, key string) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		value, ok, err := g.next(ctx, key)
		if err != nil {
			return "", err
		}
		if ok {
			return value, nil
		}
	}
	return "", fmt.Errorf("sequence=%q: gave up after %d attempts", key, maxAttempts)
}

func (g *SQLGenerator) next(ctx context.Context, key string) (string, bool, error) {
	query := `select prefix, padding, next_value from sequences where sequence_key = ? limit 1;`
	stmt, err := g.db.PrepareContext(ctx, query)
	if err != nil {
		return "", false, err
	}
	defer stmt.Close()

	var prefix sql.NullString
	var padding sql.NullInt64
	var current int64
	if err := stmt.QueryRowContext(ctx, key).Scan(&prefix, &padding, &current); err != nil {
		if err == sql.ErrNoRows {
			return "", false, fmt.Errorf("%w: %q", ErrUnknownSequence, key)
		}
		return "", false, fmt.Errorf("sequence=%q: %v", key, err)
	}

	query = `update sequences set next_value = ? where sequence_key = ? and next_value = ?;`
	stmt, err = g.db.PrepareContext(ctx, query)
	if err != nil {
		return "", false, err
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, current+1, key, current)
	if err != nil {
		return "", false, fmt.Errorf("sequence=%q: %v", key, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return "", false, nil // lost the race, try again
	}
	return format(prefix.String, int(padding.Int64), current), true, nil
}

func format(prefix string, padding int, value int64) string {
	n := fmt.Sprintf("%d", value)
	if len(n) < padding {
		n = strings.Repeat("0", padding-len(n)) + n
	}
	return prefix + n
}
