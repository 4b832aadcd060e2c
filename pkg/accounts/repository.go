// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"

	"github.com/go-kit/kit/log"
)

// Repository stores the master data SEPA messages are built from: companies,
// parties, banks and bank accounts with their numbers.
type Repository interface {
	CreateCompany(company *model.Company) error
	GetCompany(companyID id.Company) (*model.Company, error)

	CreateParty(party *model.Party) error
	GetParty(partyID id.Party) (*model.Party, error)

	CreateBank(bank *model.Bank) error

	// CreateBankAccount stores the account, its numbers in declaration order and
	// appends it to each owner's accounts.
	CreateBankAccount(account *model.BankAccount) error
	GetBankAccount(accountID id.BankAccount) (*model.BankAccount, error)

	// GetAccountNumber returns the number hydrated with its parent account.
	GetAccountNumber(numberID id.AccountNumber) (*model.AccountNumber, error)
}

func NewRepo(logger log.Logger, db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db, logger: logger}
}

type SQLRepo struct {
	db     *sql.DB
	logger log.Logger
}

func (r *SQLRepo) Close() error {
	return r.db.Close()
}

func (r *SQLRepo) CreateCompany(company *model.Company) error {
	if err := company.Validate(); err != nil {
		return err
	}
	if company.ID == "" {
		company.ID = id.Company(base.ID())
	}
	query := `insert into companies (company_id, name, currency, creditor_identifier, created_at) values (?, ?, ?, ?, ?);`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(company.ID, company.Name, company.Currency, company.CreditorIdentifier, time.Now()); err != nil {
		return fmt.Errorf("problem creating company=%s: %v", company.ID, err)
	}
	return nil
}

func (r *SQLRepo) GetCompany(companyID id.Company) (*model.Company, error) {
	query := `select company_id, name, currency, creditor_identifier from companies where company_id = ? limit 1;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var company model.Company
	var currency, creditorID sql.NullString
	if err := stmt.QueryRow(companyID).Scan(&company.ID, &company.Name, &currency, &creditorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("problem reading company=%s: %v", companyID, err)
	}
	company.Currency = currency.String
	company.CreditorIdentifier = creditorID.String
	return &company, nil
}

func (r *SQLRepo) CreateParty(party *model.Party) error {
	if party == nil || party.Name == "" {
		return errors.New("party: missing name")
	}
	if party.ID == "" {
		party.ID = id.Party(base.ID())
	}
	if party.Created.IsZero() {
		party.Created = base.NewTime(time.Now())
	}
	query := `insert into parties (party_id, name, created_at) values (?, ?, ?);`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(party.ID, party.Name, party.Created.Time); err != nil {
		return fmt.Errorf("problem creating party=%s: %v", party.ID, err)
	}
	return nil
}

func (r *SQLRepo) GetParty(partyID id.Party) (*model.Party, error) {
	query := `select party_id, name, created_at from parties where party_id = ? limit 1;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var party model.Party
	var created time.Time
	if err := stmt.QueryRow(partyID).Scan(&party.ID, &party.Name, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("problem reading party=%s: %v", partyID, err)
	}
	party.Created = base.NewTime(created)

	accountIDs, err := r.partyAccountIDs(partyID)
	if err != nil {
		return nil, err
	}
	for i := range accountIDs {
		acct, err := r.GetBankAccount(accountIDs[i])
		if err != nil {
			return nil, err
		}
		if acct != nil {
			party.BankAccounts = append(party.BankAccounts, acct)
		}
	}
	return &party, nil
}

func (r *SQLRepo) partyAccountIDs(partyID id.Party) ([]id.BankAccount, error) {
	query := `select bank_account_id from bank_account_owners where party_id = ? order by position asc, bank_account_id asc;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.Query(partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []id.BankAccount
	for rows.Next() {
		var accountID id.BankAccount
		if err := rows.Scan(&accountID); err != nil {
			return nil, err
		}
		out = append(out, accountID)
	}
	return out, rows.Err()
}

func (r *SQLRepo) CreateBank(bank *model.Bank) error {
	if bank == nil {
		return errors.New("nil Bank")
	}
	if bank.ID == "" {
		bank.ID = id.Bank(base.ID())
	}
	query := `insert into banks (bank_id, name, bic) values (?, ?, ?);`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(bank.ID, bank.Name, bank.BIC); err != nil {
		return fmt.Errorf("problem creating bank=%s: %v", bank.ID, err)
	}
	return nil
}

func (r *SQLRepo) CreateBankAccount(account *model.BankAccount) error {
	if account == nil {
		return errors.New("nil BankAccount")
	}
	if account.ID == "" {
		account.ID = id.BankAccount(base.ID())
	}
	for i := range account.Numbers {
		if err := account.Numbers[i].Type.Validate(); err != nil {
			return err
		}
		if account.Numbers[i].ID == "" {
			account.Numbers[i].ID = id.AccountNumber(base.ID())
		}
		account.Numbers[i].Account = account
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	var bankID *id.Bank
	if account.Bank != nil {
		bankID = &account.Bank.ID
	}
	query := `insert into bank_accounts (bank_account_id, bank_id, created_at) values (?, ?, ?);`
	if _, err := tx.Exec(query, account.ID, bankID, time.Now()); err != nil {
		return fmt.Errorf("problem creating bank account=%s: error=%v rollback=%v", account.ID, err, tx.Rollback())
	}

	query = `insert into bank_account_numbers (account_number_id, bank_account_id, type, number, position) values (?, ?, ?, ?, ?);`
	for i, n := range account.Numbers {
		if _, err := tx.Exec(query, n.ID, account.ID, n.Type, n.Number, i); err != nil {
			return fmt.Errorf("problem creating account number=%s: error=%v rollback=%v", n.ID, err, tx.Rollback())
		}
	}

	// Owners see the account after the ones they already have.
	for _, partyID := range account.Owners {
		var position int
		query = `select count(*) from bank_account_owners where party_id = ?;`
		if err := tx.QueryRow(query, partyID).Scan(&position); err != nil {
			return fmt.Errorf("problem counting accounts of party=%s: error=%v rollback=%v", partyID, err, tx.Rollback())
		}
		query = `insert into bank_account_owners (bank_account_id, party_id, position) values (?, ?, ?);`
		if _, err := tx.Exec(query, account.ID, partyID, position); err != nil {
			return fmt.Errorf("problem adding owner party=%s: error=%v rollback=%v", partyID, err, tx.Rollback())
		}
	}

	return tx.Commit()
}

func (r *SQLRepo) GetBankAccount(accountID id.BankAccount) (*model.BankAccount, error) {
	query := `select a.bank_account_id, b.bank_id, b.name, b.bic from bank_accounts as a
left outer join banks as b on a.bank_id = b.bank_id
where a.bank_account_id = ? limit 1;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var account model.BankAccount
	var bankID, bankName, bic sql.NullString
	if err := stmt.QueryRow(accountID).Scan(&account.ID, &bankID, &bankName, &bic); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("problem reading bank account=%s: %v", accountID, err)
	}
	if bankID.Valid {
		account.Bank = &model.Bank{
			ID:   id.Bank(bankID.String),
			Name: bankName.String,
			BIC:  bic.String,
		}
	}

	if err := r.loadNumbers(&account); err != nil {
		return nil, err
	}
	if err := r.loadOwners(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *SQLRepo) loadNumbers(account *model.BankAccount) error {
	query := `select account_number_id, type, number from bank_account_numbers where bank_account_id = ? order by position asc;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	rows, err := stmt.Query(account.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var n model.AccountNumber
		if err := rows.Scan(&n.ID, &n.Type, &n.Number); err != nil {
			return fmt.Errorf("problem reading numbers of bank account=%s: %v", account.ID, err)
		}
		account.AddNumber(&n)
	}
	return rows.Err()
}

func (r *SQLRepo) loadOwners(account *model.BankAccount) error {
	query := `select party_id from bank_account_owners where bank_account_id = ? order by party_id asc;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	rows, err := stmt.Query(account.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var partyID id.Party
		if err := rows.Scan(&partyID); err != nil {
			return err
		}
		account.Owners = append(account.Owners, partyID)
	}
	return rows.Err()
}

func (r *SQLRepo) GetAccountNumber(numberID id.AccountNumber) (*model.AccountNumber, error) {
	query := `select bank_account_id from bank_account_numbers where account_number_id = ? limit 1;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var accountID id.BankAccount
	if err := stmt.QueryRow(numberID).Scan(&accountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("problem reading account number=%s: %v", numberID, err)
	}

	account, err := r.GetBankAccount(accountID)
	if err != nil || account == nil {
		return nil, err
	}
	return FindNumber(account, numberID), nil
}

// FindNumber returns the number of account with the given ID, or nil.
func FindNumber(account *model.BankAccount, numberID id.AccountNumber) *model.AccountNumber {
	if account == nil {
		return nil
	}
	for i := range account.Numbers {
		if account.Numbers[i].ID == numberID {
			return account.Numbers[i]
		}
	}
	return nil
}

// FindPartyNumber searches every account of party for the number with the given ID.
func FindPartyNumber(party *model.Party, numberID id.AccountNumber) *model.AccountNumber {
	if party == nil {
		return nil
	}
	for i := range party.BankAccounts {
		if n := FindNumber(party.BankAccounts[i], numberID); n != nil {
			return n
		}
	}
	return nil
}
