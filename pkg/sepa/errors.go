// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"fmt"

	"github.com/moov-io/sepagate/pkg/model"
)

var (
	ErrUnknownFlavor    = fmt.Errorf("%w: unknown flavor", model.ErrConfiguration)
	ErrFlavorKind       = fmt.Errorf("%w: flavor doesn't match payment kind", model.ErrConfiguration)
	ErrCompanyAccount   = fmt.Errorf("%w: journal has no IBAN bank account number", model.ErrConfiguration)
	ErrCreditorID       = fmt.Errorf("%w: company has no creditor identifier", model.ErrConfiguration)
	ErrAmountPrecision  = fmt.Errorf("%w: amount has more decimals than its currency allows", model.ErrEligibility)
	ErrCurrencyMismatch = fmt.Errorf("%w: amount currency differs from the message currency", model.ErrEligibility)
	ErrMandate          = fmt.Errorf("%w: mandate not usable", model.ErrEligibility)
)
