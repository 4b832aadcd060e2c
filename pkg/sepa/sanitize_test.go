// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	require.Equal(t, "Societe Generale", Text("Société Générale", MaxNameLength))
	require.Equal(t, "Muller Sons", Text("Müller & Sons", MaxNameLength))
	require.Equal(t, "Invoice 2020/01 (paid)", Text("Invoice  2020/01\n(paid)", MaxRemittanceLength))
	require.Equal(t, "abc", Text("abcdef", 3))

	long := strings.Repeat("x", 200)
	require.Len(t, Text(long, MaxRemittanceLength), MaxRemittanceLength)
}

func TestID(t *testing.T) {
	require.Equal(t, "PAYMENT-1", ID("PAYMENT-1"))
	require.Equal(t, "ab/cd", ID("/ab//cd/"))
	require.Equal(t, "Facture12", ID("Facture 12€"))
	require.Equal(t, NotProvided, ID("€€€"))
	require.Equal(t, NotProvided, ID(""))

	long := strings.Repeat("a", 64)
	require.Len(t, ID(long), MaxIDLength)
}

func TestEndToEndIDs(t *testing.T) {
	var ids endToEndIDs
	require.Equal(t, "abc", ids.next("abc"))
	require.Equal(t, "abc-2", ids.next("abc"))
	require.Equal(t, "abc-3", ids.next("a b c"))

	long := strings.Repeat("a", 40)
	first := ids.next(long)
	second := ids.next(long)
	require.Len(t, first, MaxIDLength)
	require.Len(t, second, MaxIDLength)
	require.NotEqual(t, first, second)
	require.True(t, strings.HasSuffix(second, "-2"))
}

func TestPaymentInfoID(t *testing.T) {
	msgID := strings.Repeat("A", MaxIDLength)
	require.Equal(t, strings.Repeat("A", 33)+"-1", paymentInfoID(msgID, 0))
	require.Equal(t, strings.Repeat("A", 32)+"-12", paymentInfoID(msgID, 11))
}
