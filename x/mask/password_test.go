// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package mask

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	require.Equal(t, "**", Password(""))
	require.Equal(t, "**", Password("ab"))
	require.Equal(t, "s****t", Password("secret"))
	require.Equal(t, "ü*ö", Password("üaö"))
}

func TestAccountNumber(t *testing.T) {
	require.Equal(t, "ES******************0001", AccountNumber("ES3600000000050000000001"))
	require.Equal(t, "ES******************0001", AccountNumber("ES36 0000 0000 0500 0000 0001"))
	require.Equal(t, "****", AccountNumber("1234"))
	require.Equal(t, "", AccountNumber(""))
}
