// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package model

import (
	"errors"
)

var (
	// ErrEligibility is returned when a payment can't be included in a message,
	// e.g. it isn't approved, was already claimed or lacks a usable mandate.
	ErrEligibility = errors.New("payment not eligible")

	// ErrDuplicateIdentification is returned when a mandate identification is already taken.
	ErrDuplicateIdentification = errors.New("duplicate mandate identification")

	// ErrSchema is returned when a generated document fails validation.
	ErrSchema = errors.New("schema validation failed")

	// ErrConfiguration is returned when a journal or company lacks what SEPA generation needs.
	ErrConfiguration = errors.New("configuration error")
)
