// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/moov-io/sepagate/pkg/util"
)

// messageID derives the MsgId from everything that identifies the message, so
// building the same payments again yields the same identification.
func messageID(req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", req.Flavor, req.Journal.ID, req.Kind, req.Currency, req.ExecutionDate.Format(util.ISODateFormat))
	for i := range req.Entries {
		fmt.Fprintf(h, "|%s", req.Entries[i].Payment.ID)
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))[:MaxIDLength]
}

// paymentInfoID numbers the payment information blocks of a message.
func paymentInfoID(msgID string, index int) string {
	suffix := fmt.Sprintf("-%d", index+1)
	return truncate(msgID, MaxIDLength-len(suffix)) + suffix
}

// endToEndIDs keeps end-to-end identifications unique within a message by
// suffixing repeats.
type endToEndIDs struct {
	seen map[string]bool
}

func (e *endToEndIDs) next(raw string) string {
	if e.seen == nil {
		e.seen = make(map[string]bool)
	}
	base := ID(raw)
	candidate := base
	for i := 2; e.seen[candidate]; i++ {
		suffix := fmt.Sprintf("-%d", i)
		candidate = truncate(base, MaxIDLength-len(suffix)) + suffix
	}
	e.seen[candidate] = true
	return candidate
}
