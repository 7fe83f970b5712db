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

package tally

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/tallyledger/tally/database"
)

// Dispatcher drains the outbox: it polls for staged records and publishes
// each to its queue, marking it sent only after the broker confirms. Records
// are never dropped; anything that fails to publish stays unsent and is
// picked up again.
type Dispatcher struct {
	source    database.Outbox
	publisher Publisher
	interval  time.Duration
	batch     int
}

// NewDispatcher builds a dispatcher polling every interval for up to batch
// unsent records.
func NewDispatcher(source database.Outbox, publisher Publisher, interval time.Duration, batch int) *Dispatcher {
	return &Dispatcher{
		source:    source,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
	}
}

// Start runs the dispatch loop until ctx is cancelled. Consecutive failing
// rounds back off exponentially instead of hammering a broker or database
// that is already down; the first clean round resets the cadence.
func (d *Dispatcher) Start(ctx context.Context) {
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 0
	retry.MaxInterval = time.Minute
	retry.Reset()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.dispatchRound(ctx); err != nil {
				wait := retry.NextBackOff()
				logrus.Errorf("outbox dispatch round failed, backing off %s: %v", wait, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				continue
			}
			retry.Reset()
		}
	}
}

// dispatchRound publishes one batch of unsent records in staging order. It
// stops at the first publish failure so a later record for the same purchase
// cannot overtake an earlier one.
func (d *Dispatcher) dispatchRound(ctx context.Context) error {
	records, err := d.source.GetUnsentOutbox(ctx, d.batch)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := d.publisher.Publish(ctx, record.Queue, record.Payload); err != nil {
			return err
		}
		if err := d.source.MarkOutboxSent(ctx, record.RecordID); err != nil {
			// The message is on the broker but still flagged unsent. It will
			// be published again; the consuming inbox absorbs the duplicate.
			return err
		}
	}

	return nil
}
