// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/id"
)

// Company is the organization initiating payment files.
type Company struct {
	ID       id.Company `json:"id"`
	Name     string     `json:"name"`
	Currency string     `json:"currency"`

	// CreditorIdentifier is the SEPA creditor scheme identification presented in direct debits.
	CreditorIdentifier string `json:"creditorIdentifier,omitempty"`
}

func (c *Company) Validate() error {
	if c == nil {
		return errors.New("nil Company")
	}
	if c.Name == "" {
		return errors.New("company: missing name")
	}
	return nil
}

// Party is a debtor or creditor which owns bank accounts.
type Party struct {
	ID   id.Party `json:"id"`
	Name string   `json:"name"`

	// BankAccounts are kept in their declaration order.
	BankAccounts []*BankAccount `json:"bankAccounts,omitempty"`

	Created base.Time `json:"created"`
}

type Bank struct {
	ID   id.Bank `json:"id"`
	Name string  `json:"name"`
	BIC  string  `json:"bic,omitempty"`
}

type BankAccount struct {
	ID   id.BankAccount `json:"id"`
	Bank *Bank          `json:"bank,omitempty"`

	// Numbers are kept in their declaration order.
	Numbers []*AccountNumber `json:"numbers"`

	Owners []id.Party `json:"owners,omitempty"`
}

// AddNumber appends n to the account and links n back to its parent.
func (a *BankAccount) AddNumber(n *AccountNumber) {
	n.Account = a
	a.Numbers = append(a.Numbers, n)
}

type AccountNumberType string

const (
	IBAN             AccountNumberType = "iban"
	OtherAccountType AccountNumberType = "other"
)

func (t AccountNumberType) Validate() error {
	switch t {
	case IBAN, OtherAccountType:
		return nil
	default:
		return fmt.Errorf("AccountNumberType(%s) is invalid", t)
	}
}

// AccountNumber is one identifier of a BankAccount.
type AccountNumber struct {
	ID     id.AccountNumber  `json:"id"`
	Type   AccountNumberType `json:"type"`
	Number string            `json:"number"`

	// Account is the parent BankAccount, nil when the number was loaded on its own.
	Account *BankAccount `json:"-"`
}

// Compact returns Number without whitespace and in upper case, which is how IBANs are exchanged.
func (n *AccountNumber) Compact() string {
	if n == nil {
		return ""
	}
	return strings.ToUpper(strings.Join(strings.Fields(n.Number), ""))
}

// BIC returns the BIC of the bank holding this number, if known.
func (n *AccountNumber) BIC() string {
	if n == nil || n.Account == nil || n.Account.Bank == nil {
		return ""
	}
	return n.Account.Bank.BIC
}
