// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package payments

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/internal/sepatest"
	"github.com/moov-io/sepagate/pkg/accounts"
	"github.com/moov-io/sepagate/pkg/database"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/mandates"
	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/sepa"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db       *sql.DB
	accounts *accounts.SQLRepo
	mandates *mandates.SQLRepo
	repo     *SQLRepo

	company *model.Company
	journal *model.Journal
	party   *model.Party
	mandate *model.Mandate

	created time.Time
}

func setupFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()

	logger := log.NewNopLogger()
	acctRepo := accounts.NewRepo(logger, db)
	mandateRepo := mandates.NewRepo(logger, db, acctRepo)

	f := &fixture{
		db:       db,
		accounts: acctRepo,
		mandates: mandateRepo,
		repo:     NewRepo(logger, db, acctRepo, mandateRepo),
		company:  sepatest.Company(),
		created:  time.Date(2020, time.May, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, acctRepo.CreateCompany(f.company))

	f.journal = f.createJournal(t, sepa.CreditTransfer03, sepa.DirectDebit02)
	f.party = f.createParty(t, "Jane Doe")
	f.mandate = f.createMandate(t, f.party, "MANDATE-1")
	return f
}

func (f *fixture) storeAccount(t *testing.T, account *model.BankAccount) {
	t.Helper()
	require.NoError(t, f.accounts.CreateBank(account.Bank))
	require.NoError(t, f.accounts.CreateBankAccount(account))
}

func (f *fixture) createJournal(t *testing.T, payable, receivable model.Flavor) *model.Journal {
	t.Helper()
	journal := sepatest.Journal(f.company, payable, receivable)
	f.storeAccount(t, journal.BankAccountNumber.Account)
	require.NoError(t, f.repo.CreateJournal(journal))
	return journal
}

func (f *fixture) createParty(t *testing.T, name string) *model.Party {
	t.Helper()
	party := sepatest.Party(name)
	require.NoError(t, f.accounts.CreateParty(party))
	for _, account := range party.BankAccounts {
		f.storeAccount(t, account)
	}
	return party
}

func (f *fixture) createMandate(t *testing.T, party *model.Party, identification string) *model.Mandate {
	t.Helper()
	m := sepatest.Mandate(party, identification)
	m.Company = f.company.ID
	require.NoError(t, f.mandates.CreateMandate(m))
	return m
}

// payment stores a payment created one second after the previous one.
func (f *fixture) payment(t *testing.T, kind model.Kind, amount string) *model.Payment {
	t.Helper()
	var m *model.Mandate
	if kind == model.Receivable {
		m = f.mandate
	}
	return f.paymentIn(t, f.journal, kind, m, amount)
}

func (f *fixture) paymentIn(t *testing.T, journal *model.Journal, kind model.Kind, m *model.Mandate, amount string) *model.Payment {
	t.Helper()
	p := sepatest.Payment(kind, journal, f.party, m, amount)
	f.created = f.created.Add(time.Second)
	p.Created = base.NewTime(f.created)
	require.NoError(t, f.repo.CreatePayment(p))
	return p
}

func forEachDatabase(t *testing.T, check func(t *testing.T, db *sql.DB)) {
	t.Run("SQLite", func(t *testing.T) {
		db := database.CreateTestSqliteDB(t)
		defer db.Close()
		check(t, db.DB)
	})

	t.Run("MySQL", func(t *testing.T) {
		db := database.CreateTestMySQLDB(t)
		defer db.Close()
		check(t, db.DB)
	})
}

func ids(payments ...*model.Payment) []id.Payment {
	var out []id.Payment
	for _, p := range payments {
		out = append(out, p.ID)
	}
	return out
}

func TestRepository__Journal(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *sql.DB) {
		f := setupFixture(t, db)

		journal, err := f.repo.GetJournal(f.journal.ID)
		require.NoError(t, err)
		require.Equal(t, f.journal.Name, journal.Name)
		require.Equal(t, model.SEPAProcessing, journal.ProcessMethod)
		require.Equal(t, sepa.CreditTransfer03, journal.Flavor(model.Payable))
		require.Equal(t, sepa.DirectDebit02, journal.Flavor(model.Receivable))
		require.Equal(t, f.company.CreditorIdentifier, journal.Company.CreditorIdentifier)
		require.Equal(t, sepatest.CompanyIBAN, journal.BankAccountNumber.Number)
		require.Equal(t, sepatest.BankBIC, journal.BankAccountNumber.BIC())

		journal, err = f.repo.GetJournal(id.Journal(base.ID()))
		require.NoError(t, err)
		require.Nil(t, journal)
	})
}

func TestRepository__LoadPayments(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *sql.DB) {
		f := setupFixture(t, db)

		a := f.payment(t, model.Receivable, "10.00")
		b := f.payment(t, model.Payable, "2.5")
		c := f.payment(t, model.Receivable, "7.25")

		payments, err := f.repo.LoadPayments(ids(c, a, b))
		require.NoError(t, err)
		require.Len(t, payments, 3)

		// creation order, whatever the requested order
		require.Equal(t, a.ID, payments[0].ID)
		require.Equal(t, b.ID, payments[1].ID)
		require.Equal(t, c.ID, payments[2].ID)

		require.Equal(t, "EUR 2.50", payments[1].Amount.String())
		require.Equal(t, model.PaymentApproved, payments[1].State)
		require.True(t, payments[1].Date.Equal(sepatest.ExecutionDate))
		require.Nil(t, payments[1].Mandate)

		// one object per record
		require.Same(t, payments[0].Party, payments[2].Party)
		require.Same(t, payments[0].Journal, payments[1].Journal)
		require.Same(t, payments[0].Mandate, payments[2].Mandate)
		require.Same(t, payments[0].Company, payments[0].Journal.Company)

		// the mandate's number is the party's own number
		party := payments[0].Party
		require.Same(t, party.BankAccounts[0].Numbers[0], payments[0].Mandate.AccountNumber)

		n, err := accounts.Resolve(payments[0])
		require.NoError(t, err)
		require.Same(t, payments[0].Mandate.AccountNumber, n)
	})
}

func TestRepository__LoadPaymentsMissing(t *testing.T) {
	db := database.CreateTestSqliteDB(t)
	defer db.Close()

	f := setupFixture(t, db.DB)
	a := f.payment(t, model.Payable, "1.00")

	_, err := f.repo.LoadPayments([]id.Payment{a.ID, id.Payment(base.ID())})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrEligibility))

	payments, err := f.repo.LoadPayments(nil)
	require.NoError(t, err)
	require.Empty(t, payments)
}

func TestRepository__AccountOverride(t *testing.T) {
	db := database.CreateTestSqliteDB(t)
	defer db.Close()

	f := setupFixture(t, db.DB)

	second := sepatest.Account(sepatest.Bank(), model.IBAN, "DE89370400440532013000")
	second.Owners = []id.Party{f.party.ID}
	f.storeAccount(t, second)

	p := sepatest.Payment(model.Payable, f.journal, f.party, nil, "3.00")
	p.AccountNumber = second.Numbers[0]
	require.NoError(t, f.repo.CreatePayment(p))

	payments, err := f.repo.LoadPayments(ids(p))
	require.NoError(t, err)
	require.Len(t, payments[0].Party.BankAccounts, 2)
	require.Same(t, payments[0].Party.BankAccounts[1].Numbers[0], payments[0].AccountNumber)

	n, err := accounts.Resolve(payments[0])
	require.NoError(t, err)
	require.Equal(t, "DE89370400440532013000", n.Number)

	// debits are collected from the mandate's account only
	r := sepatest.Payment(model.Receivable, f.journal, f.party, f.mandate, "4.00")
	r.AccountNumber = second.Numbers[0]
	require.Error(t, f.repo.CreatePayment(r))
}

func TestRepository__ClaimPayments(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *sql.DB) {
		f := setupFixture(t, db)

		a := f.payment(t, model.Payable, "1.00")
		b := f.payment(t, model.Receivable, "2.00")
		b.SequenceType = model.SequenceFirst

		group := &model.Group{Company: f.company.ID}
		processed := time.Now()

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, f.repo.CreateGroup(tx, group))
		require.NoError(t, f.repo.ClaimPayments(tx, group.ID, []*model.Payment{a, b}, processed))
		require.NoError(t, tx.Commit())

		payments, err := f.repo.LoadPayments(ids(a, b))
		require.NoError(t, err)
		require.Equal(t, group.ID, payments[0].Group)
		require.Equal(t, model.PaymentProcessing, payments[0].State)
		require.NotNil(t, payments[0].Processed)
		require.Empty(t, payments[0].SequenceType)
		require.Equal(t, model.SequenceFirst, payments[1].SequenceType)

		// claiming again fails
		tx, err = db.Begin()
		require.NoError(t, err)
		err = f.repo.ClaimPayments(tx, id.Group(base.ID()), []*model.Payment{a}, processed)
		require.True(t, errors.Is(err, model.ErrEligibility))
		require.NoError(t, tx.Rollback())

		found, err := f.repo.GetGroup(group.ID)
		require.NoError(t, err)
		require.ElementsMatch(t, ids(a, b), found.Payments)
		require.Empty(t, found.Messages)
	})
}

func TestRepository__Messages(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *sql.DB) {
		f := setupFixture(t, db)

		group := &model.Group{}
		msg := &model.Message{
			Flavor:               sepa.CreditTransfer03,
			Kind:                 model.Payable,
			Journal:              f.journal.ID,
			Currency:             "EUR",
			ExecutionDate:        sepatest.ExecutionDate,
			Identification:       "ABCDEF",
			NumberOfTransactions: 2,
			ControlSum:           sepatest.Amount("12.50"),
			Document:             "<Document/>",
		}

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, f.repo.CreateGroup(tx, group))
		msg.Group = group.ID
		require.NoError(t, f.repo.CreateMessage(tx, msg))
		require.NoError(t, tx.Commit())

		found, err := f.repo.GetMessage(msg.ID)
		require.NoError(t, err)
		require.Equal(t, "ABCDEF", found.Identification)
		require.Equal(t, "<Document/>", found.Document)
		require.Equal(t, "12.50", found.ControlSum.Format())
		require.True(t, found.ExecutionDate.Equal(sepatest.ExecutionDate))

		g, err := f.repo.GetGroup(group.ID)
		require.NoError(t, err)
		require.Len(t, g.Messages, 1)
		require.Equal(t, msg.ID, g.Messages[0].ID)

		// message identifications are unique
		tx, err = db.Begin()
		require.NoError(t, err)
		dup := *msg
		dup.ID = ""
		require.Error(t, f.repo.CreateMessage(tx, &dup))
		require.NoError(t, tx.Rollback())

		missing, err := f.repo.GetMessage(id.Message(base.ID()))
		require.NoError(t, err)
		require.Nil(t, missing)
	})
}
