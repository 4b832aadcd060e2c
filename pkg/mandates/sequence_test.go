// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package mandates

import (
	"testing"

	"github.com/moov-io/sepagate/pkg/model"

	"github.com/stretchr/testify/require"
)

func TestSequenceType(t *testing.T) {
	oneOff := &model.Mandate{Type: model.OneOffMandate}
	require.Equal(t, model.SequenceOneOff, SequenceType(oneOff, false))
	require.Equal(t, model.SequenceOneOff, SequenceType(oneOff, true))

	recurrent := &model.Mandate{Type: model.RecurrentMandate}
	require.Equal(t, model.SequenceFirst, SequenceType(recurrent, false))
	require.Equal(t, model.SequenceFinal, SequenceType(recurrent, true))

	recurrent.SequenceConsumed = true
	require.Equal(t, model.SequenceRecurring, SequenceType(recurrent, false))
	require.Equal(t, model.SequenceFinal, SequenceType(recurrent, true))

	require.Equal(t, model.SequenceType(""), SequenceType(nil, false))
}

func TestSequenceType__neverFirstAgain(t *testing.T) {
	m := &model.Mandate{Type: model.RecurrentMandate}

	var seen []model.SequenceType
	for i := 0; i < 4; i++ {
		seen = append(seen, SequenceType(m, false))
		m.SequenceConsumed = true
	}
	require.Equal(t, []model.SequenceType{
		model.SequenceFirst,
		model.SequenceRecurring,
		model.SequenceRecurring,
		model.SequenceRecurring,
	}, seen)
}
