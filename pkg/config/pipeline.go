// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Pipeline configures where events about generated messages are published.
type Pipeline struct {
	Stream *StreamPipeline
}

func (cfg Pipeline) Validate() error {
	return cfg.Stream.Validate()
}

type StreamPipeline struct {
	InMem *InMemPipeline
	Kafka *KafkaPipeline
}

func (cfg *StreamPipeline) Validate() error {
	if cfg == nil {
		return nil
	}
	if cfg.InMem != nil && cfg.Kafka != nil {
		return errors.New("both inmem and kafka streams configured")
	}
	if m := cfg.InMem; m != nil {
		u, err := url.Parse(m.URL)
		if err != nil || u.Scheme != "mem" || u.Host == "" {
			return fmt.Errorf("inmem: stream url %q must look like mem://topic", m.URL)
		}
	}
	if k := cfg.Kafka; k != nil {
		if len(k.Brokers) == 0 || k.Topic == "" {
			return errors.New("kafka: missing brokers or topic")
		}
	}
	return nil
}

type InMemPipeline struct {
	URL string
}

type KafkaPipeline struct {
	Brokers []string
	Topic   string

	// ClientID is reported to the brokers, "sepagate" when empty.
	ClientID string
}
