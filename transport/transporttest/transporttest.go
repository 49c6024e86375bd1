// Package transporttest holds fakes shared by transport and pipeline tests.
package transporttest

import (
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Published is one Publish call as seen by Publisher.
type Published struct {
	Topic    string
	Messages []*message.Message
}

// Publisher records every Publish call. Set Err to make publishing fail.
type Publisher struct {
	mu     sync.Mutex
	calls  []Published
	closed bool

	Err error
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("publisher closed")
	}
	if p.Err != nil {
		return p.Err
	}
	p.calls = append(p.calls, Published{Topic: topic, Messages: messages})
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Calls returns the recorded Publish calls in order.
func (p *Publisher) Calls() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.calls...)
}

// Messages flattens every message published to topic, in publish order.
func (p *Publisher) Messages(topic string) []*message.Message {
	var out []*message.Message
	for _, c := range p.Calls() {
		if c.Topic == topic {
			out = append(out, c.Messages...)
		}
	}
	return out
}

// Closed reports whether Close was called.
func (p *Publisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
