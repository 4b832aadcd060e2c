// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"

	"github.com/moov-io/sepagate/pkg/config"
	"github.com/moov-io/sepagate/pkg/events"
	"github.com/moov-io/sepagate/pkg/model"

	"github.com/go-kit/kit/log"
	"gocloud.dev/pubsub"
)

type streamPublisher struct {
	logger log.Logger
	topic  *pubsub.Topic
}

func (pub *streamPublisher) Publish(ctx context.Context, msg *model.Message) error {
	out, err := events.CreateMessageGeneratedEvent(msg)
	if err != nil {
		return err
	}
	if err := pub.topic.Send(ctx, out); err != nil {
		return err
	}
	pub.logger.Log("pipeline", "published message", "messageID", msg.ID, "eventID", out.Metadata["eventID"])
	return nil
}

func (pub *streamPublisher) Shutdown(ctx context.Context) error {
	if pub == nil || pub.topic == nil {
		return nil
	}
	return pub.topic.Shutdown(ctx)
}

func createInmemPublisher(logger log.Logger, cfg *config.InMemPipeline) (*streamPublisher, error) {
	topic, err := openTopic(context.Background(), cfg.URL)
	if err != nil {
		return nil, err
	}
	return &streamPublisher{logger: logger, topic: topic}, nil
}

func createKafkaPublisher(logger log.Logger, cfg *config.KafkaPipeline) (*streamPublisher, error) {
	if cfg == nil {
		return nil, errors.New("nil Kafka config")
	}
	topic, err := openKafkaTopic(cfg)
	if err != nil {
		return nil, err
	}
	return &streamPublisher{logger: logger, topic: topic}, nil
}
