// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/moov-io/base/docker"

	"github.com/go-kit/kit/log"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	stdprom "github.com/prometheus/client_golang/prometheus"
)

var (
	mysqlConnections = kitprom.NewGaugeFrom(stdprom.GaugeOpts{
		Name: "mysql_connections",
		Help: "How many MySQL connections and what status they're in.",
	}, []string{"state"})

	// mySQLErrDuplicateKey is the error code for duplicate entries
	// https://dev.mysql.com/doc/refman/8.0/en/server-error-reference.html#error_er_dup_entry
	mySQLErrDuplicateKey uint16 = 1062

	mysqlMigrations = []string{
		`create table if not exists companies(company_id varchar(40) primary key, name varchar(140), currency varchar(3), creditor_identifier varchar(35), created_at datetime);`,
		`create table if not exists parties(party_id varchar(40) primary key, name varchar(140), created_at datetime);`,
		`create table if not exists banks(bank_id varchar(40) primary key, name varchar(140), bic varchar(11));`,
		`create table if not exists bank_accounts(bank_account_id varchar(40) primary key, bank_id varchar(40), created_at datetime);`,
		`create table if not exists bank_account_owners(bank_account_id varchar(40) not null, party_id varchar(40) not null, position integer, unique(bank_account_id, party_id));`,
		`create table if not exists bank_account_numbers(account_number_id varchar(40) primary key, bank_account_id varchar(40), type varchar(10), number varchar(64), position integer);`,
		`create table if not exists mandates(mandate_id varchar(40) primary key, identification varchar(35), party_id varchar(40), company_id varchar(40), account_number_id varchar(40), type varchar(10), scheme varchar(4), state varchar(10), signature_date datetime, sequence_consumed boolean not null default false, created_at datetime, last_updated_at datetime, unique(identification));`,
		`create table if not exists payment_journals(journal_id varchar(40) primary key, name varchar(140), company_id varchar(40), currency varchar(3), process_method varchar(10), account_number_id varchar(40), payable_flavor varchar(20), receivable_flavor varchar(20));`,
		`create table if not exists payments(payment_id varchar(40) primary key, company_id varchar(40), party_id varchar(40), journal_id varchar(40), kind varchar(10), amount_currency varchar(3), amount_value varchar(30), state varchar(10), description varchar(140), execution_date datetime, mandate_id varchar(40), account_number_id varchar(40), sequence_type varchar(4), group_id varchar(40), processed_at datetime, created_at datetime);`,
		`create table if not exists sequences(sequence_key varchar(64) primary key, prefix varchar(20), padding integer, next_value bigint not null);`,
		`create table if not exists payment_groups(group_id varchar(40) primary key, company_id varchar(40), created_at datetime);`,
		`create table if not exists messages(message_id varchar(40) primary key, group_id varchar(40), flavor varchar(20), kind varchar(10), journal_id varchar(40), currency varchar(3), execution_date datetime, message_identification varchar(35) not null, number_of_transactions integer, control_sum varchar(30), document mediumtext, created_at datetime, unique(message_identification));`,
	}
)

type discardLogger struct{}

func (l discardLogger) Print(v ...interface{}) {}

func init() {
	gomysql.SetLogger(discardLogger{})
}

type mysql struct {
	dsn        string
	migrations []string
	logger     log.Logger
}

func (my *mysql) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("mysql", my.dsn)
	if err != nil {
		return nil, err
	}
	if err := my.migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	go recordStats(ctx, db, mysqlConnections)

	return db, nil
}

// migrate runs every statement in order. Each one is idempotent ("if not
// exists") so the list is replayed on every startup.
func (my *mysql) migrate(db *sql.DB) error {
	for i, stmt := range my.migrations {
		slug := stmt
		if len(slug) > 40 {
			slug = slug[:40]
		}
		res, err := db.Exec(stmt)
		if err != nil {
			return fmt.Errorf("mysql migration #%d [%s...]: %v", i, slug, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			my.logger.Log("database", fmt.Sprintf("mysql migration #%d [%s...] changed %d rows", i, slug, n))
		}
	}
	return nil
}

func mysqlConnection(logger log.Logger, user, pass string, address string, database string) *mysql {
	params := url.Values{}
	params.Set("timeout", "30s")
	params.Set("charset", "utf8mb4")
	params.Set("parseTime", "true")
	params.Set("sql_mode", "ALLOW_INVALID_DATES")
	params.Set("clientFoundRows", "true")
	return &mysql{
		dsn:        fmt.Sprintf("%s:%s@%s/%s?%s", user, pass, address, database, params.Encode()),
		migrations: mysqlMigrations,
		logger:     logger,
	}
}

// TestMySQLDB is a wrapper around sql.DB for MySQL connections designed for tests to provide
// a clean database for each testcase.  Callers should cleanup with Close() when finished.
type TestMySQLDB struct {
	DB *sql.DB

	container *dockertest.Resource
	shutdown  func() // context shutdown func
}

func (r *TestMySQLDB) Close() error {
	r.shutdown()
	r.container.Close()
	return r.DB.Close()
}

// CreateTestMySQLDB returns a TestMySQLDB which can be used in tests
// as a clean mysql database. All migrations are ran on the db before.
//
// Callers should call close on the returned *TestMySQLDB.
func CreateTestMySQLDB(t *testing.T) *TestMySQLDB {
	if testing.Short() {
		t.Skip("-short flag enabled")
	}
	if !docker.Enabled() {
		t.Skip("Docker not enabled")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatal(err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8",
		Env: []string{
			"MYSQL_USER=moov",
			"MYSQL_PASSWORD=secret",
			"MYSQL_ROOT_PASSWORD=secret",
			"MYSQL_DATABASE=sepagate",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = pool.Retry(func() error {
		db, err := sql.Open("mysql", fmt.Sprintf("moov:secret@tcp(localhost:%s)/sepagate", resource.GetPort("3306/tcp")))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	})
	if err != nil {
		resource.Close()
		t.Fatal(err)
	}

	logger := log.NewNopLogger()
	address := fmt.Sprintf("tcp(localhost:%s)", resource.GetPort("3306/tcp"))

	ctx, cancelFunc := context.WithCancel(context.Background())

	db, err := mysqlConnection(logger, "moov", "secret", address, "sepagate").Connect(ctx)
	if err != nil {
		cancelFunc()
		resource.Close()
		t.Fatal(err)
	}
	return &TestMySQLDB{DB: db, container: resource, shutdown: cancelFunc}
}

// MySQLUniqueViolation returns true when the provided error matches the MySQL code
// for duplicate entries (violating a unique table constraint).
func MySQLUniqueViolation(err error) bool {
	match := strings.Contains(err.Error(), fmt.Sprintf("Error %d: Duplicate entry", mySQLErrDuplicateKey))
	var e *gomysql.MySQLError
	if errors.As(err, &e) {
		return match || e.Number == mySQLErrDuplicateKey
	}
	return match
}
