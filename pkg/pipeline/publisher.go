// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"

	"github.com/moov-io/sepagate/pkg/config"
	"github.com/moov-io/sepagate/pkg/model"

	"github.com/go-kit/kit/log"
)

// Publisher announces stored messages to downstream consumers (e.g. the
// system transmitting files to banks).
type Publisher interface {
	Publish(ctx context.Context, msg *model.Message) error
	Shutdown(ctx context.Context) error
}

// NewPublisher returns the publisher for cfg, or a discarding one when no
// stream is configured.
func NewPublisher(logger log.Logger, cfg config.Pipeline) (Publisher, error) {
	if cfg.Stream != nil {
		return createStreamPublisher(logger, cfg.Stream)
	}
	return &discardPublisher{}, nil
}

func createStreamPublisher(logger log.Logger, cfg *config.StreamPipeline) (Publisher, error) {
	if cfg == nil {
		return nil, errors.New("missing config: StreamPipeline")
	}
	if cfg.InMem != nil {
		return createInmemPublisher(logger, cfg.InMem)
	}
	if cfg.Kafka != nil {
		return createKafkaPublisher(logger, cfg.Kafka)
	}
	return nil, errors.New("unknown StreamPipeline config")
}

type discardPublisher struct{}

func (*discardPublisher) Publish(_ context.Context, _ *model.Message) error { return nil }
func (*discardPublisher) Shutdown(_ context.Context) error                 { return nil }
