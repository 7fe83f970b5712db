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
	"encoding/json"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

var reconcilerTracer = otel.Tracer("tally.reconciler")

// ProcessStatusMessage handles one purchase-status message delivered from the
// status queue and moves the purchase to the reported terminal state.
// Returning nil acknowledges the delivery; returning an error leaves it on
// the queue for redelivery.
//
// Duplicates resolve as no-ops and a status conflicting with an already
// recorded terminal state is logged and dropped, so redelivery can never
// flip a settled purchase.
func (o *Orders) ProcessStatusMessage(ctx context.Context, body []byte) error {
	ctx, span := reconcilerTracer.Start(ctx, "ProcessStatusMessage")
	defer span.End()

	var msg model.PurchaseStatusMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		span.RecordError(err)
		logrus.Errorf("discarding malformed status message: %v", err)
		return nil
	}
	if msg.PurchaseID <= 0 || !msg.Status.Terminal() {
		logrus.Errorf("discarding invalid status message for purchase %d: %q", msg.PurchaseID, msg.Status)
		return nil
	}

	span.SetAttributes(attribute.Int64("purchase.id", msg.PurchaseID), attribute.String("purchase.status", string(msg.Status)))

	result, err := o.datasource.ApplyPurchaseStatus(ctx, msg.PurchaseID, msg.Status)
	if err != nil {
		if apierror.IsCode(err, apierror.ErrNotFound) {
			// A status for a purchase this ledger never recorded. Redelivery
			// cannot fix it, so log loudly and acknowledge.
			logrus.Errorf("status %s for unknown purchase %d", msg.Status, msg.PurchaseID)
			return nil
		}
		span.RecordError(err)
		return err
	}

	switch result {
	case model.TransitionApplied:
		logrus.Infof("purchase %d moved to %s", msg.PurchaseID, msg.Status)
	case model.TransitionNoop:
		logrus.Infof("purchase %d already %s, duplicate status absorbed", msg.PurchaseID, msg.Status)
	case model.TransitionConflict:
		logrus.Errorf("conflicting status %s for purchase %d, keeping recorded terminal state", msg.Status, msg.PurchaseID)
	}

	return nil
}
