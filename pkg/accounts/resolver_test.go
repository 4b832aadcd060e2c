// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"errors"
	"strings"
	"testing"

	"github.com/moov-io/sepagate/pkg/model"

	"github.com/stretchr/testify/require"
)

func testParty() *model.Party {
	bank := &model.Bank{ID: "bank", Name: "Bank", BIC: "BICODEBBXXX"}

	other := &model.BankAccount{ID: "other", Bank: bank}
	other.AddNumber(&model.AccountNumber{ID: "other-number", Type: model.OtherAccountType, Number: "123456"})

	first := &model.BankAccount{ID: "first", Bank: bank}
	first.AddNumber(&model.AccountNumber{ID: "first-iban", Type: model.IBAN, Number: "ES8200000000000000000000"})

	second := &model.BankAccount{ID: "second", Bank: bank}
	second.AddNumber(&model.AccountNumber{ID: "second-iban", Type: model.IBAN, Number: "ES3600000000050000000001"})

	return &model.Party{
		ID:           "party",
		Name:         "Party",
		BankAccounts: []*model.BankAccount{other, first, second},
	}
}

func TestResolve__mandateIdentity(t *testing.T) {
	party := testParty()
	mandate := &model.Mandate{
		ID:            "mandate",
		AccountNumber: party.BankAccounts[2].Numbers[0],
	}
	p := &model.Payment{ID: "payment", Kind: model.Receivable, Party: party, Mandate: mandate}

	n, err := Resolve(p)
	require.NoError(t, err)
	require.Same(t, mandate.AccountNumber, n)
}

func TestResolve__mandateOverOverride(t *testing.T) {
	party := testParty()
	mandate := &model.Mandate{
		ID:            "mandate",
		AccountNumber: party.BankAccounts[1].Numbers[0],
	}
	p := &model.Payment{
		ID:            "payment",
		Kind:          model.Receivable,
		Party:         party,
		Mandate:       mandate,
		AccountNumber: party.BankAccounts[2].Numbers[0],
	}

	n, err := Resolve(p)
	require.NoError(t, err)
	require.Same(t, mandate.AccountNumber, n)
	require.Equal(t, "ES8200000000000000000000", n.Number)

	// a mandate without an authorized number never falls back to the party
	mandate.AccountNumber = nil
	n, err = Resolve(p)
	require.Nil(t, n)
	require.True(t, errors.Is(err, model.ErrEligibility))
	require.Contains(t, err.Error(), "mandate=mandate")
}

func TestResolve__firstIBAN(t *testing.T) {
	party := testParty()
	p := &model.Payment{ID: "payment", Kind: model.Payable, Party: party}

	n, err := Resolve(p)
	require.NoError(t, err)
	require.Same(t, party.BankAccounts[1].Numbers[0], n)
	require.Equal(t, model.IBAN, n.Type)
}

func TestResolve__override(t *testing.T) {
	party := testParty()
	override := party.BankAccounts[2].Numbers[0]
	p := &model.Payment{ID: "payment", Party: party, AccountNumber: override}

	n, err := Resolve(p)
	require.NoError(t, err)
	require.Same(t, override, n)
}

func TestResolve__noIBAN(t *testing.T) {
	party := testParty()
	party.BankAccounts = party.BankAccounts[:1]
	p := &model.Payment{ID: "payment", Party: party}

	n, err := Resolve(p)
	require.Nil(t, n)
	require.True(t, errors.Is(err, ErrNoIBAN))
	require.True(t, errors.Is(err, model.ErrEligibility))
	require.True(t, strings.Contains(err.Error(), "payment=payment party=party"), err.Error())

	_, err = Resolve(nil)
	require.Error(t, err)
}
