// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/moov-io/sepagate/pkg/config"

	"github.com/go-kit/kit/log"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	"github.com/lopezator/migrator"
	"github.com/mattn/go-sqlite3"
	stdprom "github.com/prometheus/client_golang/prometheus"
)

var (
	sqliteConnections = kitprom.NewGaugeFrom(stdprom.GaugeOpts{
		Name: "sqlite_connections",
		Help: "How many sqlite connections and what status they're in.",
	}, []string{"state"})

	sqliteVersionLogOnce sync.Once

	sqliteMigrations = migrator.Migrations(
		execsql(
			"create_companies",
			`create table companies(company_id primary key not null, name, currency, creditor_identifier, created_at datetime);`,
		),
		execsql(
			"create_parties",
			`create table parties(party_id primary key not null, name, created_at datetime);`,
		),
		execsql(
			"create_banks",
			`create table banks(bank_id primary key not null, name, bic);`,
		),
		execsql(
			"create_bank_accounts",
			`create table bank_accounts(bank_account_id primary key not null, bank_id, created_at datetime);`,
		),
		execsql(
			"create_bank_account_owners",
			`create table bank_account_owners(bank_account_id not null, party_id not null, position integer, unique(bank_account_id, party_id));`,
		),
		execsql(
			"create_bank_account_numbers",
			`create table bank_account_numbers(account_number_id primary key not null, bank_account_id, type, number, position integer);`,
		),
		execsql(
			"create_mandates",
			`create table mandates(mandate_id primary key not null, identification, party_id, company_id, account_number_id, type, scheme, state, signature_date datetime, sequence_consumed boolean not null default 0, created_at datetime, last_updated_at datetime);`,
		),
		execsql(
			"create_mandates__identification_idx",
			`create unique index mandates_identification on mandates (identification);`,
		),
		execsql(
			"create_payment_journals",
			`create table payment_journals(journal_id primary key not null, name, company_id, currency, process_method, account_number_id, payable_flavor, receivable_flavor);`,
		),
		execsql(
			"create_payments",
			`create table payments(payment_id primary key not null, company_id, party_id, journal_id, kind, amount_currency, amount_value, state, description, execution_date datetime, mandate_id, account_number_id, created_at datetime);`,
		),
		execsql(
			"add_sequence_type__to__payments",
			`alter table payments add column sequence_type;`,
		),
		execsql(
			"add_group_id__to__payments",
			`alter table payments add column group_id;`,
		),
		execsql(
			"add_processed_at__to__payments",
			`alter table payments add column processed_at datetime;`,
		),
		execsql(
			"create_sequences",
			`create table sequences(sequence_key primary key not null, prefix, padding integer, next_value integer not null);`,
		),
		execsql(
			"create_payment_groups",
			`create table payment_groups(group_id primary key not null, company_id, created_at datetime);`,
		),
		execsql(
			"create_messages",
			`create table messages(message_id primary key not null, group_id, flavor, kind, journal_id, currency, execution_date datetime, message_identification not null, number_of_transactions integer, control_sum, document, created_at datetime);`,
		),
		execsql(
			"create_messages__identification_idx",
			`create unique index messages_identification on messages (message_identification);`,
		),
	)
)

type sqlite struct {
	path   string
	logger log.Logger
}

// dsn opens the file with a busy timeout and immediate write locks, so two
// processors claiming the same mandate serialize on BEGIN instead of failing
// halfway through a group.
func (s *sqlite) dsn() string {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_txlock", "immediate")
	return fmt.Sprintf("file:%s?%s", s.path, params.Encode())
}

func (s *sqlite) Connect(ctx context.Context) (*sql.DB, error) {
	if s == nil {
		return nil, fmt.Errorf("nil %T", s)
	}

	sqliteVersionLogOnce.Do(func() {
		if v, _, _ := sqlite3.Version(); v != "" {
			s.logger.Log("database", fmt.Sprintf("sqlite version %s", v))
		}
	})

	db, err := sql.Open("sqlite3", s.dsn())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return db, err
	}

	m, err := migrator.New(sqliteMigrations)
	if err != nil {
		return db, err
	}
	if err := m.Migrate(db); err != nil {
		return db, fmt.Errorf("sqlite migrations: %v", err)
	}

	go recordStats(ctx, db, sqliteConnections)

	return db, nil
}

func sqliteConnection(logger log.Logger, path string) *sqlite {
	if path == "" {
		return nil
	}
	return &sqlite{path: path, logger: logger}
}

// getSqlitePath falls back to sepagate.db in the working directory when the
// configured path is empty or tries to climb out of it.
func getSqlitePath(cfg *config.SQLite) string {
	if cfg == nil || cfg.Path == "" || strings.Contains(cfg.Path, "..") {
		return "sepagate.db"
	}
	return cfg.Path
}

// TestSQLiteDB holds a migrated SQLite database in its own temp directory.
type TestSQLiteDB struct {
	DB *sql.DB

	dir    string
	cancel context.CancelFunc
}

// Close stops the stats recorder, checks every connection was returned and
// removes the database file.
func (r *TestSQLiteDB) Close() error {
	r.cancel()

	if conns := r.DB.Stats().OpenConnections; conns != 0 {
		panic(fmt.Sprintf("found %d open sqlite connections", conns))
	}
	if err := r.DB.Close(); err != nil {
		return err
	}
	return os.RemoveAll(r.dir)
}

// CreateTestSqliteDB returns a freshly migrated database. Idle connections
// are disabled so Close can detect leaked rows or statements.
func CreateTestSqliteDB(t *testing.T) *TestSQLiteDB {
	t.Helper()

	dir, err := ioutil.TempDir("", "sepagate-sqlite")
	if err != nil {
		t.Fatalf("sqlite test: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	db, err := sqliteConnection(log.NewNopLogger(), filepath.Join(dir, "sepagate.db")).Connect(ctx)
	if err != nil {
		cancel()
		t.Fatalf("sqlite test: %v", err)
	}
	db.SetMaxIdleConns(0)

	return &TestSQLiteDB{DB: db, dir: dir, cancel: cancel}
}

// SqliteUniqueViolation reports whether err came from a unique index or
// primary key conflict.
func SqliteUniqueViolation(err error) bool {
	var e sqlite3.Error
	if errors.As(err, &e) && e.Code == sqlite3.ErrConstraint {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
