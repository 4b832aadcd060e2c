// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
)

func TestMySQL__basic(t *testing.T) {
	db := CreateTestMySQLDB(t)
	defer db.Close()

	require.NoError(t, db.DB.Ping())
}

func TestMySQL__mysqlConnection(t *testing.T) {
	db := mysqlConnection(log.NewNopLogger(), "moov", "secret", "tcp(localhost:3306)", "sepagate")
	require.NotNil(t, db)
	require.NotEmpty(t, db.migrations)
	require.True(t, strings.HasPrefix(db.dsn, "moov:secret@tcp(localhost:3306)/sepagate?"))
	require.Contains(t, db.dsn, "parseTime=true")
	require.Contains(t, db.dsn, "charset=utf8mb4")
	require.Contains(t, db.dsn, "clientFoundRows=true")
}

func TestMySQLUniqueViolation(t *testing.T) {
	err := errors.New(`problem creating message="282f6ffcd9ba5b029afbf2b739ee826e22d9df3b": Error 1062: Duplicate entry 'abc' for key 'message_identification'`)
	require.True(t, UniqueViolation(err))
}
