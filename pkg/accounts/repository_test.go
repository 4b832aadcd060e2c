// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"testing"

	"github.com/moov-io/sepagate/pkg/database"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	t.Parallel()

	check := func(t *testing.T, repo *SQLRepo) {
		company := &model.Company{Name: "Company", Currency: "EUR", CreditorIdentifier: "BE68539007547034"}
		require.NoError(t, repo.CreateCompany(company))

		found, err := repo.GetCompany(company.ID)
		require.NoError(t, err)
		require.Equal(t, company, found)

		party := &model.Party{Name: "Party"}
		require.NoError(t, repo.CreateParty(party))

		bank := &model.Bank{Name: "Bank", BIC: "BICODEBBXXX"}
		require.NoError(t, repo.CreateBank(bank))

		first := &model.BankAccount{Bank: bank, Owners: []id.Party{party.ID}}
		first.AddNumber(&model.AccountNumber{Type: model.OtherAccountType, Number: "123456"})
		require.NoError(t, repo.CreateBankAccount(first))

		second := &model.BankAccount{Bank: bank, Owners: []id.Party{party.ID}}
		second.AddNumber(&model.AccountNumber{Type: model.OtherAccountType, Number: "654321"})
		second.AddNumber(&model.AccountNumber{Type: model.IBAN, Number: "ES82 0000 0000 0000 0000 0000"})
		require.NoError(t, repo.CreateBankAccount(second))

		loaded, err := repo.GetParty(party.ID)
		require.NoError(t, err)
		require.Len(t, loaded.BankAccounts, 2)
		require.Equal(t, first.ID, loaded.BankAccounts[0].ID)
		require.Equal(t, second.ID, loaded.BankAccounts[1].ID)
		require.Equal(t, "BICODEBBXXX", loaded.BankAccounts[1].Bank.BIC)
		require.Equal(t, []id.Party{party.ID}, loaded.BankAccounts[1].Owners)

		// numbers keep their declaration order and point back to their account
		numbers := loaded.BankAccounts[1].Numbers
		require.Len(t, numbers, 2)
		require.Equal(t, model.OtherAccountType, numbers[0].Type)
		require.Equal(t, model.IBAN, numbers[1].Type)
		require.Same(t, loaded.BankAccounts[1], numbers[1].Account)

		// the IBAN is picked over the other number
		n, err := Resolve(&model.Payment{ID: "payment", Party: loaded})
		require.NoError(t, err)
		require.Equal(t, second.Numbers[1].ID, n.ID)
		require.Equal(t, "ES8200000000000000000000", n.Compact())
		require.Equal(t, "BICODEBBXXX", n.BIC())

		number, err := repo.GetAccountNumber(second.Numbers[1].ID)
		require.NoError(t, err)
		require.Equal(t, "ES82 0000 0000 0000 0000 0000", number.Number)
		require.Equal(t, second.ID, number.Account.ID)

		// missing records
		missingParty, err := repo.GetParty("missing")
		require.NoError(t, err)
		require.Nil(t, missingParty)

		missingNumber, err := repo.GetAccountNumber("missing")
		require.NoError(t, err)
		require.Nil(t, missingNumber)
	}

	t.Run("SQLite", func(t *testing.T) {
		db := database.CreateTestSqliteDB(t)
		defer db.Close()
		check(t, NewRepo(log.NewNopLogger(), db.DB))
	})

	t.Run("MySQL", func(t *testing.T) {
		db := database.CreateTestMySQLDB(t)
		defer db.Close()
		check(t, NewRepo(log.NewNopLogger(), db.DB))
	})
}

func TestRepository__invalidNumberType(t *testing.T) {
	db := database.CreateTestSqliteDB(t)
	defer db.Close()

	repo := NewRepo(log.NewNopLogger(), db.DB)

	account := &model.BankAccount{}
	account.AddNumber(&model.AccountNumber{Type: "swift", Number: "123"})
	require.Error(t, repo.CreateBankAccount(account))
}
