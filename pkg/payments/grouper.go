// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package payments

import (
	"fmt"
	"time"

	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/util"
)

// PartitionKey identifies the payments rendered into one message.
type PartitionKey struct {
	Journal       id.Journal
	Kind          model.Kind
	Flavor        model.Flavor
	Currency      string
	ExecutionDate time.Time
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("journal=%s kind=%s flavor=%s currency=%s date=%s", k.Journal, k.Kind, k.Flavor, k.Currency, k.ExecutionDate.Format(util.ISODateFormat))
}

type Partition struct {
	Key      PartitionKey
	Journal  *model.Journal
	Payments []*model.Payment
}

// Group partitions payments by journal, kind, flavor, currency and execution
// date. Payments of journals not processed through SEPA are skipped. Partitions
// follow the order in which their first payment appears and keep input order
// inside.
func Group(payments []*model.Payment) []*Partition {
	var out []*Partition
	index := make(map[PartitionKey]*Partition)

	for _, p := range payments {
		if p == nil || !p.Journal.IsSEPA() {
			continue
		}
		key := PartitionKey{
			Journal:       p.Journal.ID,
			Kind:          p.Kind,
			Flavor:        p.Journal.Flavor(p.Kind),
			Currency:      p.Amount.Currency(),
			ExecutionDate: p.ExecutionDate(),
		}
		part, ok := index[key]
		if !ok {
			part = &Partition{Key: key, Journal: p.Journal}
			index[key] = part
			out = append(out, part)
		}
		part.Payments = append(part.Payments, p)
	}
	return out
}
