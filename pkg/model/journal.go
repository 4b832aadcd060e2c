// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package model

import (
	"errors"
	"fmt"

	"github.com/moov-io/sepagate/pkg/id"
)

type ProcessMethod string

const (
	ManualProcessing ProcessMethod = "manual"
	SEPAProcessing   ProcessMethod = "sepa"
)

// Flavor names one schema version of a pain message, e.g. pain.001.001.03
type Flavor string

func (f Flavor) String() string {
	return string(f)
}

// Journal groups payments of one company and currency and decides how they are processed.
type Journal struct {
	ID            id.Journal    `json:"id"`
	Name          string        `json:"name"`
	Company       *Company      `json:"company,omitempty"`
	Currency      string        `json:"currency"`
	ProcessMethod ProcessMethod `json:"processMethod"`

	// BankAccountNumber is the company's own account: the debtor account of
	// credit transfers and the creditor account of direct debits.
	BankAccountNumber *AccountNumber `json:"bankAccountNumber,omitempty"`

	PayableFlavor    Flavor `json:"payableFlavor,omitempty"`
	ReceivableFlavor Flavor `json:"receivableFlavor,omitempty"`
}

var journalFlavors = map[Kind]func(*Journal) Flavor{
	Payable:    func(j *Journal) Flavor { return j.PayableFlavor },
	Receivable: func(j *Journal) Flavor { return j.ReceivableFlavor },
}

// Flavor returns the configured flavor for payments of kind.
func (j *Journal) Flavor(kind Kind) Flavor {
	if j == nil {
		return ""
	}
	if fn, ok := journalFlavors[kind]; ok {
		return fn(j)
	}
	return ""
}

// IsSEPA reports whether payments of this journal are processed into SEPA messages.
func (j *Journal) IsSEPA() bool {
	return j != nil && j.ProcessMethod == SEPAProcessing
}

func (j *Journal) Validate() error {
	if j == nil {
		return errors.New("nil Journal")
	}
	switch j.ProcessMethod {
	case ManualProcessing, SEPAProcessing:
	default:
		return fmt.Errorf("ProcessMethod(%s) is invalid", j.ProcessMethod)
	}
	if j.Currency == "" {
		return errors.New("journal: missing currency")
	}
	return nil
}
