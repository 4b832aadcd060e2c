// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package events

import (
	"encoding/json"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/model"

	"gocloud.dev/pubsub"
)

const MessageGeneratedType = "MessageGenerated"

// MessageGenerated announces a stored SEPA message. Consumers fetch the
// document itself from the messages endpoint.
type MessageGenerated struct {
	EventID   string `json:"eventID"`
	EventType string `json:"eventType"`

	MessageID            string    `json:"messageID"`
	GroupID              string    `json:"groupID"`
	JournalID            string    `json:"journalID"`
	Flavor               string    `json:"flavor"`
	Kind                 string    `json:"kind"`
	Identification       string    `json:"identification"`
	ExecutionDate        time.Time `json:"executionDate"`
	NumberOfTransactions int       `json:"numberOfTransactions"`
	ControlSum           string    `json:"controlSum"`
	Currency             string    `json:"currency"`
}

func CreateMessageGeneratedEvent(msg *model.Message) (*pubsub.Message, error) {
	event := &MessageGenerated{
		EventID:              base.ID(),
		EventType:            MessageGeneratedType,
		MessageID:            msg.ID.String(),
		GroupID:              msg.Group.String(),
		JournalID:            msg.Journal.String(),
		Flavor:               msg.Flavor.String(),
		Kind:                 string(msg.Kind),
		Identification:       msg.Identification,
		ExecutionDate:        msg.ExecutionDate,
		NumberOfTransactions: msg.NumberOfTransactions,
		ControlSum:           msg.ControlSum.Format(),
		Currency:             msg.Currency,
	}
	out, err := buildMessage(event.EventID, event)
	if err != nil {
		return nil, err
	}
	out.Metadata["eventType"] = event.EventType
	out.Metadata["flavor"] = event.Flavor
	return out, nil
}

func buildMessage(eventID string, event interface{}) (*pubsub.Message, error) {
	bs, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	meta["eventID"] = eventID

	return &pubsub.Message{
		Body:     bs,
		Metadata: meta,
	}, nil
}
