// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"fmt"
	"sort"
	"sync"

	"github.com/moov-io/sepagate/pkg/model"
)

const (
	CreditTransfer03 model.Flavor = "pain.001.001.03"
	CreditTransfer05 model.Flavor = "pain.001.001.05"
	DirectDebit02    model.Flavor = "pain.008.001.02"
	DirectDebit04    model.Flavor = "pain.008.001.04"
)

// Flavor is a schema version of a SEPA message. Each renders a Document into
// the element names its schema expects.
type Flavor interface {
	Name() model.Flavor
	Kind() model.Kind

	// Namespace is the default XML namespace of the document.
	Namespace() string

	// SchemaFile is the published XSD's file name.
	SchemaFile() string

	Render(doc *Document) ([]byte, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[model.Flavor]Flavor)
)

func init() {
	Register(&creditTransfer{name: CreditTransfer03})
	Register(&creditTransfer{name: CreditTransfer05, bicfi: true})
	Register(&directDebit{name: DirectDebit02})
	Register(&directDebit{name: DirectDebit04, bicfi: true})
}

// Register adds f, replacing any flavor of the same name.
func Register(f Flavor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[f.Name()] = f
}

func Lookup(name model.Flavor) (Flavor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if f, ok := registry[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("flavor=%q: %w", name, ErrUnknownFlavor)
}

// Flavors returns every registered flavor ordered by name.
func Flavors() []Flavor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Flavor, 0, len(registry))
	for _, f := range registry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func namespace(name model.Flavor) string {
	return "urn:iso:std:iso:20022:tech:xsd:" + string(name)
}

func schemaFile(name model.Flavor) string {
	return string(name) + ".xsd"
}
