// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"sync"

	"github.com/moov-io/sepagate/pkg/model"
)

type MockPublisher struct {
	Err error

	mu        sync.Mutex
	Published []*model.Message
}

func (p *MockPublisher) Publish(_ context.Context, msg *model.Message) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, msg)
	return nil
}

func (p *MockPublisher) Shutdown(_ context.Context) error {
	return nil
}
