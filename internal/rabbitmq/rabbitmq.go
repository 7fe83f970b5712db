/*
Copyright 2026 Tally Ledger Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// State is the connection lifecycle state of a broker handle.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
)

// ErrNotConnected is returned by Publish while the connection is down.
// Callers retry through their own backoff; the watcher is already reconnecting.
var ErrNotConnected = errors.New("broker not connected")

// Conn is an explicitly owned broker handle shared by every publisher and
// consumer of a service. Consumers open their own channels from the shared
// connection; the confirm-mode publish channel is owned by Conn itself.
type Conn struct {
	url string

	mu        sync.RWMutex
	conn      *amqp.Connection
	publishCh *amqp.Channel
	state     State
	closed    bool

	publishMu sync.Mutex
}

func New(url string) *Conn {
	return &Conn{url: url, state: StateDisconnected}
}

// Dial establishes the initial connection, retrying with exponential backoff
// for at most maxWait. A broker that never comes up within the window is a
// fatal startup error; connections lost later are retried forever.
func (c *Conn) Dial(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxWait

	err := backoff.Retry(c.connect, backoff.WithContext(bo, ctx))
	if err != nil {
		return errors.Wrap(err, "broker unreachable at startup")
	}
	return nil
}

func (c *Conn) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return backoff.Permanent(errors.New("broker handle closed"))
	}

	c.state = StateConnecting
	conn, err := amqp.Dial(c.url)
	if err != nil {
		c.state = StateDisconnected
		logrus.Errorf("broker dial failed: %v", err)
		return errors.Wrap(err, "dial broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		c.state = StateDisconnected
		return errors.Wrap(err, "open publish channel")
	}

	// Publisher confirms: a staged message is only marked sent after the
	// broker acknowledges it.
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		c.state = StateDisconnected
		return errors.Wrap(err, "enable publisher confirms")
	}

	c.conn = conn
	c.publishCh = ch
	c.state = StateConnected
	go c.watch(conn)
	go c.watchPublish(conn, ch)

	logrus.Info(" [*] Connected to broker")
	return nil
}

// watch reconnects after the broker drops an established connection.
func (c *Conn) watch(conn *amqp.Connection) {
	amqpErr, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || amqpErr == nil {
		return
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.publishCh = nil
		c.state = StateDisconnected
	}
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}

	logrus.Errorf("broker connection lost: %v", amqpErr)

	// A transient partition must not crash a running service.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	if err := backoff.Retry(c.connect, bo); err != nil {
		logrus.Errorf("broker reconnect abandoned: %v", err)
	}
}

// watchPublish recovers from channel-level failures that leave the
// connection itself alive, e.g. an AMQP exception raised by a queue
// precondition conflict. The connection watcher never sees those; without
// this, every later Publish would fail on the dead channel while the state
// machine still reported CONNECTED.
func (c *Conn) watchPublish(conn *amqp.Connection, ch *amqp.Channel) {
	amqpErr, ok := <-ch.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || amqpErr == nil {
		return
	}
	if !c.dropPublishChannel(conn, ch) {
		return
	}

	logrus.Errorf("publish channel lost: %v", amqpErr)
	c.reopenPublishChannel(conn)
}

// dropPublishChannel marks the publish path disconnected if conn and ch are
// still the current pair. Reports whether recovery should proceed; a stale
// watcher (the handle was closed or already reconnected) must not touch a
// healthy replacement.
func (c *Conn) dropPublishChannel(conn *amqp.Connection, ch *amqp.Channel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn != conn || c.publishCh != ch {
		return false
	}
	c.publishCh = nil
	c.state = StateDisconnected
	return true
}

func (c *Conn) reopenPublishChannel(conn *amqp.Connection) {
	newCh, err := conn.Channel()
	if err == nil {
		err = newCh.Confirm(false)
	}
	if err != nil {
		// The connection is likely going down too; closing it hands the
		// problem to the connection watcher's full reconnect.
		logrus.Errorf("reopen publish channel: %v", err)
		_ = conn.Close()
		return
	}

	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		_ = newCh.Close()
		return
	}
	c.publishCh = newCh
	c.state = StateConnected
	c.mu.Unlock()

	logrus.Info(" [*] Publish channel reopened")
	go c.watchPublish(conn, newCh)
}

func (c *Conn) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Conn) connection() *amqp.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected {
		return nil
	}
	return c.conn
}

// Close tears the handle down for good. The watcher sees the closed flag and
// stops reconnecting.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.publishCh = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Publish sends body to the durable queue and waits for the broker confirm.
// Any failure surfaces to the caller; the dispatcher retries until it lands.
func (c *Conn) Publish(ctx context.Context, queue string, body []byte) error {
	c.mu.RLock()
	ch := c.publishCh
	connected := c.state == StateConnected
	c.mu.RUnlock()

	if !connected || ch == nil {
		return ErrNotConnected
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "declare queue %s", queue)
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return errors.Wrapf(err, "publish to queue %s", queue)
	}

	select {
	case <-confirmation.Done():
		if !confirmation.Acked() {
			return errors.Errorf("broker rejected message for queue %s", queue)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Consume delivers messages from the durable queue to handler, one at a time.
// A nil handler result acknowledges the delivery; an error nacks it back to
// the broker for redelivery. The loop survives reconnects and returns only
// when ctx is done, after the in-flight delivery has been resolved.
func (c *Conn) Consume(ctx context.Context, queue string, handler func(context.Context, []byte) error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn := c.connection()
		if conn == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		ch, err := conn.Channel()
		if err != nil {
			logrus.Errorf("open consume channel for %s: %v", queue, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.drain(ctx, ch, queue, handler); err != nil {
			logrus.Errorf("consume loop for %s: %v", queue, err)
		}
		_ = ch.Close()
	}
}

func (c *Conn) drain(ctx context.Context, ch *amqp.Channel, queue string, handler func(context.Context, []byte) error) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "declare queue %s", queue)
	}

	// One unacked delivery at a time per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		return errors.Wrap(err, "set qos")
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "consume queue %s", queue)
	}

	logrus.Infof(" [*] Waiting for messages on %s", queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				// Channel closed under us; outer loop reconnects. The unacked
				// delivery, if any, is redelivered by the broker.
				return nil
			}
			if err := handler(ctx, d.Body); err != nil {
				logrus.Errorf("error processing message from %s: %v", queue, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
