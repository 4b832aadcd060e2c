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
)

type MandateType string

const (
	OneOffMandate    MandateType = "one-off"
	RecurrentMandate MandateType = "recurrent"
)

func (t MandateType) Validate() error {
	switch t {
	case OneOffMandate, RecurrentMandate:
		return nil
	default:
		return fmt.Errorf("MandateType(%s) is invalid", t)
	}
}

func (t *MandateType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = MandateType(strings.ToLower(s))
	return t.Validate()
}

type MandateState string

const (
	MandateDraft     MandateState = "draft"
	MandateRequested MandateState = "requested"
	MandateValidated MandateState = "validated"
	MandateCanceled  MandateState = "canceled"
)

func (s MandateState) Validate() error {
	switch s {
	case MandateDraft, MandateRequested, MandateValidated, MandateCanceled:
		return nil
	default:
		return fmt.Errorf("MandateState(%s) is invalid", s)
	}
}

// Scheme is the SEPA direct debit local instrument.
type Scheme string

const (
	CoreScheme Scheme = "CORE"
	B2BScheme  Scheme = "B2B"
)

func (s Scheme) Validate() error {
	switch s {
	case CoreScheme, B2BScheme:
		return nil
	default:
		return fmt.Errorf("Scheme(%s) is invalid", s)
	}
}

// SequenceType classifies a direct debit instruction in the life of its mandate.
type SequenceType string

const (
	SequenceFirst     SequenceType = "FRST"
	SequenceRecurring SequenceType = "RCUR"
	SequenceFinal     SequenceType = "FNAL"
	SequenceOneOff    SequenceType = "OOFF"
)

func (s SequenceType) Validate() error {
	switch s {
	case SequenceFirst, SequenceRecurring, SequenceFinal, SequenceOneOff:
		return nil
	default:
		return fmt.Errorf("SequenceType(%s) is invalid", s)
	}
}

// Mandate is a debtor's authorization for a creditor to collect direct debits.
type Mandate struct {
	ID id.Mandate `json:"id"`

	// Identification is unique across all mandates. An empty value means
	// the mandate has no identification yet.
	Identification string `json:"identification,omitempty"`

	Party   id.Party   `json:"party"`
	Company id.Company `json:"company"`

	// AccountNumber is the authorized debit account. The mandate owns it, so
	// callers must never replace it with a copy.
	AccountNumber *AccountNumber `json:"accountNumber,omitempty"`

	Type          MandateType  `json:"type"`
	Scheme        Scheme       `json:"scheme"`
	State         MandateState `json:"state"`
	SignatureDate *time.Time   `json:"signatureDate,omitempty"`

	// SequenceConsumed is set once a generated message used this mandate,
	// after which recurrent debits are RCUR rather than FRST.
	SequenceConsumed bool `json:"sequenceConsumed"`

	Created base.Time `json:"created"`
	Updated base.Time `json:"updated"`
}

func (m *Mandate) Validate() error {
	if m == nil {
		return errors.New("nil Mandate")
	}
	if m.Party == "" {
		return errors.New("mandate: missing party")
	}
	if err := m.Type.Validate(); err != nil {
		return err
	}
	if err := m.Scheme.Validate(); err != nil {
		return err
	}
	if err := m.State.Validate(); err != nil {
		return err
	}
	return nil
}

// Usable reports whether the mandate may back a direct debit.
func (m *Mandate) Usable() error {
	if m == nil {
		return errors.New("missing mandate")
	}
	if m.State != MandateValidated {
		return fmt.Errorf("mandate %s is %s, not %s", m.ID, m.State, MandateValidated)
	}
	if m.Identification == "" {
		return fmt.Errorf("mandate %s has no identification", m.ID)
	}
	if m.AccountNumber == nil || m.AccountNumber.Type != IBAN {
		return fmt.Errorf("mandate %s has no IBAN account number", m.ID)
	}
	if m.SignatureDate == nil || m.SignatureDate.IsZero() {
		return fmt.Errorf("mandate %s has no signature date", m.ID)
	}
	return nil
}
