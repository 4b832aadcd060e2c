// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package model

import (
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/id"
)

// Group is one payment processing run and the messages it produced.
type Group struct {
	ID       id.Group     `json:"id"`
	Company  id.Company   `json:"company,omitempty"`
	Payments []id.Payment `json:"payments"`
	Messages []*Message   `json:"messages"`
	Created  base.Time    `json:"created"`
}

// Message is one rendered ISO 20022 document.
type Message struct {
	ID    id.Message `json:"id"`
	Group id.Group   `json:"group"`

	Flavor        Flavor     `json:"flavor"`
	Kind          Kind       `json:"kind"`
	Journal       id.Journal `json:"journal"`
	Currency      string     `json:"currency"`
	ExecutionDate time.Time  `json:"executionDate"`

	// Identification is the MsgId written into the document's group header.
	Identification       string `json:"identification"`
	NumberOfTransactions int    `json:"numberOfTransactions"`
	ControlSum           Amount `json:"controlSum"`

	// Document is the UTF-8 XML text.
	Document string `json:"-"`

	Created base.Time `json:"created"`
}
