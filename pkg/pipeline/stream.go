// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"

	"github.com/moov-io/sepagate/pkg/config"
	"github.com/moov-io/sepagate/pkg/util"

	"github.com/Shopify/sarama"
	"gocloud.dev/pubsub"
	"gocloud.dev/pubsub/kafkapubsub"
	_ "gocloud.dev/pubsub/mempubsub"
)

// OpenSubscription opens a gocloud.dev/pubsub subscription by URL, such as
// mem://sepagate for in-memory topics.
//
//  - https://gocloud.dev/howto/pubsub/subscribe/
func OpenSubscription(ctx context.Context, url string) (*pubsub.Subscription, error) {
	return pubsub.OpenSubscription(ctx, url)
}

// KafkaSubscription joins group and receives messages published to topics.
func KafkaSubscription(brokers []string, group string, topics []string) (*pubsub.Subscription, error) {
	return kafkapubsub.OpenSubscription(brokers, kafkaConfig(""), group, topics, nil)
}

func openTopic(ctx context.Context, url string) (*pubsub.Topic, error) {
	return pubsub.OpenTopic(ctx, url)
}

// openKafkaTopic sends through a sarama.SyncProducer, which requires
// Producer.Return.Successes.
func openKafkaTopic(cfg *config.KafkaPipeline) (*pubsub.Topic, error) {
	return kafkapubsub.OpenTopic(cfg.Brokers, kafkaConfig(cfg.ClientID), cfg.Topic, &kafkapubsub.TopicOptions{
		KeyName: "eventID",
	})
}

// kafkaConfig identifies the client as clientID, "sepagate" when empty.
func kafkaConfig(clientID string) *sarama.Config {
	cfg := kafkapubsub.MinimalConfig()
	cfg.ClientID = util.Or(clientID, "sepagate")
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	return cfg
}
