// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/util"
)

// Kind determines if a Payment is paid out (credit transfer) or collected (direct debit).
type Kind string

const (
	Payable    Kind = "payable"
	Receivable Kind = "receivable"
)

func (k Kind) Validate() error {
	switch k {
	case Payable, Receivable:
		return nil
	default:
		return fmt.Errorf("Kind(%s) is invalid", k)
	}
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*k = Kind(strings.ToLower(s))
	return k.Validate()
}

type PaymentState string

const (
	PaymentDraft      PaymentState = "draft"
	PaymentApproved   PaymentState = "approved"
	PaymentProcessing PaymentState = "processing"
	PaymentSucceeded  PaymentState = "succeeded"
	PaymentFailed     PaymentState = "failed"
)

func (s PaymentState) Validate() error {
	switch s {
	case PaymentDraft, PaymentApproved, PaymentProcessing, PaymentSucceeded, PaymentFailed:
		return nil
	default:
		return fmt.Errorf("PaymentState(%s) is invalid", s)
	}
}

// Payment is one approved amount owed to or by a Party.
//
// Party, Journal, Company and Mandate are loaded alongside the Payment so
// message generation never reads master data on its own.
type Payment struct {
	ID          id.Payment   `json:"id"`
	Kind        Kind         `json:"kind"`
	Amount      Amount       `json:"amount"`
	State       PaymentState `json:"state"`
	Description string       `json:"description"`

	// Date is the requested execution (or collection) date.
	Date time.Time `json:"date"`

	Company *Company `json:"company,omitempty"`
	Party   *Party   `json:"party,omitempty"`
	Journal *Journal `json:"journal,omitempty"`

	// Mandate is required for receivable payments.
	Mandate *Mandate `json:"mandate,omitempty"`

	// AccountNumber overrides the resolved bank account number of a payable
	// payment. Receivable payments are collected from the mandate's account.
	AccountNumber *AccountNumber `json:"accountNumber,omitempty"`

	// SequenceType records the direct debit sequence used when the payment was processed.
	SequenceType SequenceType `json:"sequenceType,omitempty"`

	Group     id.Group   `json:"group,omitempty"`
	Processed *time.Time `json:"processed,omitempty"`
	Created   base.Time  `json:"created"`
}

func (p *Payment) Validate() error {
	if p == nil {
		return errors.New("nil Payment")
	}
	if err := p.Kind.Validate(); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if !p.Amount.IsPositive() {
		return errors.New("payment: amount must be positive")
	}
	if err := p.State.Validate(); err != nil {
		return err
	}
	if p.Party == nil || p.Party.ID == "" {
		return errors.New("payment: missing party")
	}
	if p.Journal == nil || p.Journal.ID == "" {
		return errors.New("payment: missing journal")
	}
	if p.Kind == Receivable && p.AccountNumber != nil {
		return fmt.Errorf("payment: receivable payments are collected from their mandate's account, not account number=%s", p.AccountNumber.ID)
	}
	return nil
}

// ExecutionDate returns the payment date truncated to a calendar day.
func (p *Payment) ExecutionDate() time.Time {
	return util.Date(p.Date)
}
