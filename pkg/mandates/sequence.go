// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package mandates

import (
	"github.com/moov-io/sepagate/pkg/model"
)

// SequenceType derives the direct debit sequence type of the next collection
// under m. final marks the collection as the last one before the mandate is
// canceled.
//
// A recurrent mandate yields FRST until a generated message consumed its first
// use, then RCUR. It never returns to FRST.
func SequenceType(m *model.Mandate, final bool) model.SequenceType {
	if m == nil {
		return ""
	}
	switch {
	case m.Type == model.OneOffMandate:
		return model.SequenceOneOff
	case final:
		return model.SequenceFinal
	case !m.SequenceConsumed:
		return model.SequenceFirst
	default:
		return model.SequenceRecurring
	}
}
