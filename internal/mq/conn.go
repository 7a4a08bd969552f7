package mq

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

type Config struct {
	User         string
	Pass         string
	Host         string
	Port         int
	MaxReconnect int
}

func (c Config) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Pass, c.Host, c.Port)
}

type Conn struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

func NewConnection(cfg Config) (Conn, error) {
	log.Infof("connecting to mq at %s:%d", cfg.Host, cfg.Port)

	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return Conn{}, errors.Wrap(err, "dial mq")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return Conn{}, errors.Wrap(err, "open mq channel")
	}

	log.Info("verified mq connection")

	return Conn{conn: conn, Channel: ch}, nil
}

// DeclareExchange declares a durable topic exchange.
func (c Conn) DeclareExchange(name string) error {
	if err := c.Channel.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "declare exchange %s", name)
	}
	return nil
}

func (c Conn) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return c.Channel.Publish(exchange, key, mandatory, immediate, msg)
}

func (c Conn) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	return c.Channel.NotifyClose(ch)
}

func (c Conn) Close() error {
	if err := c.Channel.Close(); err != nil {
		return errors.Wrap(err, "close mq channel")
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return errors.Wrap(err, "close mq connection")
		}
	}
	return nil
}
