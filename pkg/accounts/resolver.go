// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"errors"
	"fmt"

	"github.com/moov-io/sepagate/pkg/model"
)

var (
	ErrNoIBAN = fmt.Errorf("%w: no IBAN account number", model.ErrEligibility)
)

// Resolve returns the bank account number a payment is made to or collected from.
//
// A payment under a mandate always uses the number the mandate authorizes,
// whatever else is set. Otherwise the explicit override on the payment wins,
// then the first IBAN among the party's accounts in their declaration order.
// The returned value is the stored object itself so callers can compare it by
// identity.
func Resolve(p *model.Payment) (*model.AccountNumber, error) {
	if p == nil {
		return nil, errors.New("nil Payment")
	}
	if p.Mandate != nil {
		if p.Mandate.AccountNumber == nil {
			return nil, fmt.Errorf("payment=%s mandate=%s: %w", p.ID, p.Mandate.ID, ErrNoIBAN)
		}
		return p.Mandate.AccountNumber, nil
	}
	if p.AccountNumber != nil {
		return p.AccountNumber, nil
	}
	if p.Party != nil {
		for _, account := range p.Party.BankAccounts {
			if account == nil {
				continue
			}
			for _, n := range account.Numbers {
				if n != nil && n.Type == model.IBAN {
					return n, nil
				}
			}
		}
	}
	var partyID string
	if p.Party != nil {
		partyID = p.Party.ID.String()
	}
	return nil, fmt.Errorf("payment=%s party=%s: %w", p.ID, partyID, ErrNoIBAN)
}
