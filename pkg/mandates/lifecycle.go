// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package mandates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"
)

var (
	ErrInvalidTransition = errors.New("invalid mandate state transition")

	// ErrMandateLocked is returned when an edit would change what a debtor
	// authorized after the mandate was validated.
	ErrMandateLocked = errors.New("validated mandate can't change identification, account number or type")
)

// allowedFrom lists the states a mandate may be in before moving to the key state.
var allowedFrom = map[model.MandateState][]model.MandateState{
	model.MandateRequested: {model.MandateDraft},
	model.MandateValidated: {model.MandateDraft, model.MandateRequested},
	model.MandateCanceled:  {model.MandateDraft, model.MandateRequested, model.MandateValidated},
}

// Transition moves m into the state to. Validation requires the mandate to be
// complete enough for a collection.
func Transition(m *model.Mandate, to model.MandateState) error {
	if m == nil {
		return errors.New("nil Mandate")
	}
	from, ok := allowedFrom[to]
	if !ok || !contains(from, m.State) {
		return fmt.Errorf("%w: mandate=%s from %s to %s", ErrInvalidTransition, m.ID, m.State, to)
	}
	if to == model.MandateValidated {
		next := *m
		next.State = to
		if err := next.Usable(); err != nil {
			return err
		}
	}
	m.State = to
	m.Updated = base.NewTime(time.Now())
	return nil
}

// CheckUpdate refuses edits from before to after that touch the
// identification, account number or type of a validated mandate. Those are
// the reference the debtor's bank checks on every collection.
func CheckUpdate(before, after *model.Mandate) error {
	if before == nil || after == nil || before.State != model.MandateValidated {
		return nil
	}
	var beforeNumber, afterNumber id.AccountNumber
	if before.AccountNumber != nil {
		beforeNumber = before.AccountNumber.ID
	}
	if after.AccountNumber != nil {
		afterNumber = after.AccountNumber.ID
	}
	if strings.TrimSpace(before.Identification) != strings.TrimSpace(after.Identification) ||
		beforeNumber != afterNumber || before.Type != after.Type {
		return fmt.Errorf("mandate=%s: %w", before.ID, ErrMandateLocked)
	}
	return nil
}

func contains(states []model.MandateState, s model.MandateState) bool {
	for i := range states {
		if states[i] == s {
			return true
		}
	}
	return false
}
