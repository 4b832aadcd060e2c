// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package sepatest builds in-memory master data and payments for tests.
package sepatest

import (
	"fmt"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"
)

var (
	CreditorIdentifier = "BE68539007547034"
	BankBIC            = "BICODEBBXXX"
	CompanyIBAN        = "ES8200000000000000000000"
	PartyIBAN          = "ES3600000000050000000001"

	SignatureDate = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	ExecutionDate = time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC)
)

func Bank() *model.Bank {
	return &model.Bank{ID: id.Bank(base.ID()), Name: "Bank", BIC: BankBIC}
}

func Company() *model.Company {
	return &model.Company{
		ID:                 id.Company(base.ID()),
		Name:               "Company",
		Currency:           "EUR",
		CreditorIdentifier: CreditorIdentifier,
	}
}

// Account returns a bank account holding a single number.
func Account(bank *model.Bank, kind model.AccountNumberType, number string) *model.BankAccount {
	account := &model.BankAccount{ID: id.BankAccount(base.ID()), Bank: bank}
	account.AddNumber(&model.AccountNumber{
		ID:     id.AccountNumber(base.ID()),
		Type:   kind,
		Number: number,
	})
	return account
}

func Journal(company *model.Company, payable, receivable model.Flavor) *model.Journal {
	own := Account(Bank(), model.IBAN, CompanyIBAN)
	return &model.Journal{
		ID:                id.Journal(base.ID()),
		Name:              "SEPA",
		Company:           company,
		Currency:          "EUR",
		ProcessMethod:     model.SEPAProcessing,
		BankAccountNumber: own.Numbers[0],
		PayableFlavor:     payable,
		ReceivableFlavor:  receivable,
	}
}

// Party returns a party owning one account with an IBAN.
func Party(name string) *model.Party {
	party := &model.Party{
		ID:      id.Party(base.ID()),
		Name:    name,
		Created: base.NewTime(time.Now()),
	}
	account := Account(Bank(), model.IBAN, PartyIBAN)
	account.Owners = []id.Party{party.ID}
	party.BankAccounts = append(party.BankAccounts, account)
	return party
}

// Mandate returns a validated recurrent mandate over the party's first number.
func Mandate(party *model.Party, identification string) *model.Mandate {
	signed := SignatureDate
	return &model.Mandate{
		ID:             id.Mandate(base.ID()),
		Identification: identification,
		Party:          party.ID,
		AccountNumber:  party.BankAccounts[0].Numbers[0],
		Type:           model.RecurrentMandate,
		Scheme:         model.CoreScheme,
		State:          model.MandateValidated,
		SignatureDate:  &signed,
	}
}

func Amount(value string) model.Amount {
	amt, err := model.NewAmount("EUR", value)
	if err != nil {
		panic(fmt.Sprintf("bogus amount %q: %v", value, err))
	}
	return *amt
}

// Payment returns an approved payment due on ExecutionDate.
func Payment(kind model.Kind, journal *model.Journal, party *model.Party, mandate *model.Mandate, amount string) *model.Payment {
	return &model.Payment{
		ID:          id.Payment(base.ID()),
		Kind:        kind,
		Amount:      Amount(amount),
		State:       model.PaymentApproved,
		Description: "PAYMENT",
		Date:        ExecutionDate,
		Company:     journal.Company,
		Party:       party,
		Journal:     journal,
		Mandate:     mandate,
		Created:     base.NewTime(time.Now()),
	}
}
