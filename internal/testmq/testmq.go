package testmq

import (
	"sync"

	"github.com/streadway/amqp"
)

type Message struct {
	Exchange   string
	Key        string
	Publishing amqp.Publishing
}

// Publisher records what would have gone to the broker.
type Publisher struct {
	mu       sync.Mutex
	messages []Message

	Err error
}

func (p *Publisher) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if p.Err != nil {
		return p.Err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Exchange: exchange, Key: key, Publishing: msg})
	return nil
}

func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}
