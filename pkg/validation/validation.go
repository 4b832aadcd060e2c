// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package validation decides whether a rendered SEPA document may be stored.
// Validators are pure: the same document and flavor always give the same Result.
package validation

import (
	"fmt"
	"strings"

	"github.com/moov-io/sepagate/pkg/model"
)

type Validator interface {
	Validate(document []byte, flavor model.Flavor) Result
}

type Result struct {
	Valid       bool     `json:"valid"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Err returns nil for valid documents and otherwise an error wrapping
// model.ErrSchema with every diagnostic.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", model.ErrSchema, strings.Join(r.Diagnostics, "; "))
}

func invalid(diagnostics ...string) Result {
	return Result{Valid: false, Diagnostics: diagnostics}
}

// Chain runs every validator and merges their diagnostics. An empty Chain
// accepts everything.
type Chain []Validator

func (c Chain) Validate(document []byte, flavor model.Flavor) Result {
	out := Result{Valid: true}
	for i := range c {
		if c[i] == nil {
			continue
		}
		res := c[i].Validate(document, flavor)
		if !res.Valid {
			out.Valid = false
		}
		out.Diagnostics = append(out.Diagnostics, res.Diagnostics...)
	}
	return out
}
