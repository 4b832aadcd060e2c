// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
)

type SEPA struct {
	// MandateSequence is the sequence key drawn from when a mandate is saved
	// without identification. Leave empty to keep such mandates unidentified.
	MandateSequence string

	// MandatePrefix and MandatePadding shape the identifications drawn from
	// MandateSequence, e.g. MNDT00001.
	MandatePrefix  string
	MandatePadding int

	Validation Validation
}

func (cfg SEPA) Validate() error {
	if cfg.MandatePadding < 0 {
		return errors.New("negative mandate padding")
	}
	return cfg.Validation.Validate()
}

// Validation selects which gates a rendered document must pass before it's stored.
type Validation struct {
	// SchemaDirectory holds the published XSD files named after their flavor,
	// e.g. pain.001.001.03.xsd
	SchemaDirectory string

	// Structural enables the built-in checks of required elements, totals and identifiers.
	Structural bool
}

func (cfg Validation) Validate() error {
	if cfg.SchemaDirectory != "" {
		fd, err := os.Stat(cfg.SchemaDirectory)
		if err != nil {
			return err
		}
		if !fd.IsDir() {
			return errors.New("schema directory is not a directory")
		}
	}
	return nil
}
