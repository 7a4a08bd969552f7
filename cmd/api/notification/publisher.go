package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/tamasbrandstadter/banking-gateway/internal/amount"
	"github.com/tamasbrandstadter/banking-gateway/internal/mq"
)

const (
	ExchangeName = "balance-notifications"
	RouteKey     = "transaction.completed"
)

// Publisher is satisfied by *amqp.Channel.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Link is a dialed broker connection, satisfied by mq.Conn.
type Link interface {
	Publisher
	DeclareExchange(name string) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// Completed tells other sessions of the same user that their balances moved.
type Completed struct {
	UserID            int64         `json:"userId"`
	Kind              string        `json:"kind"`
	TransactionNumber string        `json:"transactionNumber"`
	AccountNumber     string        `json:"accountNumber,omitempty"`
	Amount            amount.Amount `json:"amount"`
	BalanceAfter      amount.Amount `json:"balanceAfter"`
	CreatedAt         time.Time     `json:"createdAt"`
}

type Notifier struct {
	mu  sync.RWMutex
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) publisher() Publisher {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pub
}

func (n *Notifier) swap(pub Publisher) {
	n.mu.Lock()
	n.pub = pub
	n.mu.Unlock()
}

func (n *Notifier) PublishCompleted(e Completed) error {
	pub := n.publisher()
	if pub == nil {
		return errors.New("no mq channel to publish on")
	}

	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode notification")
	}

	err = pub.Publish(ExchangeName, RouteKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
		DeliveryMode: amqp.Transient,
	})
	if err != nil {
		return errors.Wrapf(err, "publish to %s", ExchangeName)
	}

	log.Infof("published %s notification for transaction %s", e.Kind, e.TransactionNumber)
	return nil
}

// ReconnectOnClose waits for the channel to close and, unless the close was
// requested, dials again up to cfg.MaxReconnect times and swaps in the new channel.
func (n *Notifier) ReconnectOnClose(cfg mq.Config, closed <-chan *amqp.Error, dial func(mq.Config) (Link, error)) {
	err, ok := <-closed
	if !ok || err == nil {
		log.Info("mq connection closed normally, will not reconnect")
		return
	}

	log.Errorf("closed mq connection: %v", err)
	n.swap(nil)

	for i := 0; i < cfg.MaxReconnect; i++ {
		log.Info("attempting to reconnect to mq")

		link, err := dial(cfg)
		if err == nil {
			if err = link.DeclareExchange(ExchangeName); err == nil {
				log.Info("reconnected to mq")
				n.swap(link)
				go n.ReconnectOnClose(cfg, link.NotifyClose(make(chan *amqp.Error, 1)), dial)
				return
			}

			if closeErr := link.Close(); closeErr != nil {
				log.WithError(closeErr).Warn("close mq connection after failed exchange declare")
			}
		}

		log.WithError(err).Warn("mq reconnect attempt failed")
		time.Sleep(time.Second)
	}

	log.Error("reached max attempts, unable to reconnect to mq")
}
