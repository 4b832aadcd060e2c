// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"time"

	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"
)

// Document holds a message independent of the flavor it's rendered in.
type Document struct {
	MessageID            string
	CreationTime         time.Time
	NumberOfTransactions int
	ControlSum           model.Amount

	// InitiatingParty is the company sending the message.
	InitiatingParty string

	PaymentInfos []*PaymentInfo
}

// PaymentInfo is a block of transactions sharing the company side of the
// transfer, the execution date and, for direct debits, the sequence type.
type PaymentInfo struct {
	ID                   string
	ExecutionDate        time.Time
	NumberOfTransactions int
	ControlSum           model.Amount

	// SequenceType and LocalInstrument are only set on direct debits.
	SequenceType    model.SequenceType
	LocalInstrument model.Scheme

	// CompanyName and CompanyAccount are the debtor of credit transfers and the
	// creditor of direct debits.
	CompanyName    string
	CompanyAccount Account

	CreditorSchemeID string

	Transactions []*Transaction
}

type Account struct {
	IBAN string

	// BIC is empty when the bank is unknown.
	BIC string
}

type Transaction struct {
	Payment    id.Payment
	EndToEndID string
	Amount     model.Amount

	// Name and Account belong to the counterparty: creditor of a credit
	// transfer, debtor of a direct debit.
	Name    string
	Account Account

	Remittance string

	MandateID            string
	MandateSignatureDate time.Time
}
