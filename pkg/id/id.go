// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package id

import "strings"

type Company string

func (c Company) String() string {
	return string(c)
}

type Party string

func (p Party) String() string {
	return string(p)
}

type Bank string

func (b Bank) String() string {
	return string(b)
}

type BankAccount string

func (b BankAccount) String() string {
	return string(b)
}

type AccountNumber string

func (n AccountNumber) String() string {
	return string(n)
}

type Mandate string

func (m Mandate) String() string {
	return string(m)
}

func (m Mandate) Equal(s string) bool {
	return strings.EqualFold(string(m), s)
}

type Payment string

func (p Payment) String() string {
	return string(p)
}

func (p Payment) Equal(s string) bool {
	return strings.EqualFold(string(p), s)
}

type Journal string

func (j Journal) String() string {
	return string(j)
}

type Group string

func (g Group) String() string {
	return string(g)
}

type Message string

func (m Message) String() string {
	return string(m)
}
