// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package xsd validates documents against the published ISO 20022 schemas.
package xsd

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/sepa"
	"github.com/moov-io/sepagate/pkg/validation"

	"github.com/lestrrat-go/libxml2"
	lxsd "github.com/lestrrat-go/libxml2/xsd"
)

// Validator loads <dir>/<flavor>.xsd on first use and caches the parsed schema.
type Validator struct {
	dir string

	mu      sync.Mutex
	schemas map[model.Flavor]*lxsd.Schema
}

func New(dir string) (*Validator, error) {
	if dir == "" {
		return nil, errors.New("xsd: empty schema directory")
	}
	if fd, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("xsd: %v", err)
	} else if !fd.IsDir() {
		return nil, fmt.Errorf("xsd: %s is not a directory", dir)
	}
	return &Validator{
		dir:     dir,
		schemas: make(map[model.Flavor]*lxsd.Schema),
	}, nil
}

func (v *Validator) schema(flavor model.Flavor) (*lxsd.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.schemas[flavor]; ok {
		return s, nil
	}
	f, err := sepa.Lookup(flavor)
	if err != nil {
		return nil, err
	}
	bs, err := ioutil.ReadFile(filepath.Join(v.dir, f.SchemaFile()))
	if err != nil {
		return nil, fmt.Errorf("reading schema for %s: %v", flavor, err)
	}
	s, err := lxsd.Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("parsing schema for %s: %v", flavor, err)
	}
	v.schemas[flavor] = s
	return s, nil
}

func (v *Validator) Validate(document []byte, flavor model.Flavor) validation.Result {
	s, err := v.schema(flavor)
	if err != nil {
		return validation.Result{Diagnostics: []string{err.Error()}}
	}

	doc, err := libxml2.Parse(document)
	if err != nil {
		return validation.Result{Diagnostics: []string{fmt.Sprintf("malformed XML: %v", err)}}
	}
	defer doc.Free()

	if err := s.Validate(doc); err != nil {
		var out validation.Result
		var verr lxsd.SchemaValidationError
		if errors.As(err, &verr) {
			for _, e := range verr.Errors() {
				out.Diagnostics = append(out.Diagnostics, e.Error())
			}
		}
		if len(out.Diagnostics) == 0 {
			out.Diagnostics = []string{err.Error()}
		}
		return out
	}
	return validation.Result{Valid: true}
}

// Close releases every cached schema.
func (v *Validator) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for k, s := range v.schemas {
		s.Free()
		delete(v.schemas, k)
	}
	return nil
}
