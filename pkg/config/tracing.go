// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
)

type Tracing struct {
	Enabled bool

	// SampleRate is the fraction of operations recorded, 1.0 records everything.
	SampleRate float64

	// AgentAddress is the host:port of the jaeger agent. The client default
	// (localhost:6831) is used when empty.
	AgentAddress string

	// LogSpans writes every finished span to the service logger.
	LogSpans bool
}

func (cfg Tracing) Validate() error {
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return fmt.Errorf("sample rate %.2f outside of [0, 1]", cfg.SampleRate)
	}
	if cfg.AgentAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.AgentAddress); err != nil {
			return fmt.Errorf("agent address: %v", err)
		}
	}
	return nil
}
