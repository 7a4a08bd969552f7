package notification

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasbrandstadter/banking-gateway/internal/amount"
	"github.com/tamasbrandstadter/banking-gateway/internal/mq"
	"github.com/tamasbrandstadter/banking-gateway/internal/testmq"
)

func TestPublishCompleted(t *testing.T) {
	pub := &testmq.Publisher{}
	n := NewNotifier(pub)

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	e := Completed{
		UserID:            7,
		Kind:              "deposit",
		TransactionNumber: "TX-1",
		AccountNumber:     "12345678",
		Amount:            amount.FromInt(100),
		BalanceAfter:      amount.FromInt(600),
		CreatedAt:         created,
	}

	require.NoError(t, n.PublishCompleted(e))

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ExchangeName, msgs[0].Exchange)
	assert.Equal(t, RouteKey, msgs[0].Key)
	assert.Equal(t, "application/json", msgs[0].Publishing.ContentType)

	_, err := uuid.Parse(msgs[0].Publishing.MessageId)
	assert.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[0].Publishing.Body, &got))

	want := map[string]interface{}{
		"userId":            float64(7),
		"kind":              "deposit",
		"transactionNumber": "TX-1",
		"accountNumber":     "12345678",
		"amount":            "100.00",
		"balanceAfter":      "600.00",
		"createdAt":         "2024-03-01T10:00:00Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected notification body:\n%v", diff)
	}
}

func TestPublishCompletedError(t *testing.T) {
	n := NewNotifier(&testmq.Publisher{Err: amqp.ErrClosed})

	err := n.PublishCompleted(Completed{Kind: "transfer"})

	assert.Equal(t, amqp.ErrClosed, errors.Cause(err))
}

func TestPublishWithoutChannel(t *testing.T) {
	n := NewNotifier(nil)

	assert.Error(t, n.PublishCompleted(Completed{Kind: "withdrawal"}))
}

type fakeLink struct {
	testmq.Publisher

	declareErr error
	closes     int
}

func (l *fakeLink) DeclareExchange(string) error {
	return l.declareErr
}

func (l *fakeLink) NotifyClose(c chan *amqp.Error) chan *amqp.Error {
	return c
}

func (l *fakeLink) Close() error {
	l.closes++
	return nil
}

func TestReconnectOnCloseNormalClose(t *testing.T) {
	pub := &testmq.Publisher{}
	n := NewNotifier(pub)

	closed := make(chan *amqp.Error)
	close(closed)

	dialed := false
	n.ReconnectOnClose(mq.Config{MaxReconnect: 3}, closed, func(mq.Config) (Link, error) {
		dialed = true
		return &fakeLink{}, nil
	})

	assert.False(t, dialed)
	assert.NotNil(t, n.publisher())
}

func TestReconnectOnCloseGivesUp(t *testing.T) {
	n := NewNotifier(&testmq.Publisher{})

	closed := make(chan *amqp.Error, 1)
	closed <- amqp.ErrClosed

	attempts := 0
	n.ReconnectOnClose(mq.Config{MaxReconnect: 2}, closed, func(mq.Config) (Link, error) {
		attempts++
		return nil, errors.New("connection refused")
	})

	assert.Equal(t, 2, attempts)
	assert.Error(t, n.PublishCompleted(Completed{Kind: "deposit"}))
}

func TestReconnectClosesLinkWhenDeclareFails(t *testing.T) {
	n := NewNotifier(&testmq.Publisher{})

	closed := make(chan *amqp.Error, 1)
	closed <- amqp.ErrClosed

	broken := &fakeLink{declareErr: errors.New("access refused")}
	healthy := &fakeLink{}
	links := []*fakeLink{broken, healthy}

	n.ReconnectOnClose(mq.Config{MaxReconnect: 3}, closed, func(mq.Config) (Link, error) {
		l := links[0]
		links = links[1:]
		return l, nil
	})

	assert.Equal(t, 1, broken.closes)
	assert.Equal(t, 0, healthy.closes)

	require.NoError(t, n.PublishCompleted(Completed{Kind: "deposit", TransactionNumber: "TX-1"}))
	assert.Empty(t, broken.Messages())
	assert.Len(t, healthy.Messages(), 1)
}
