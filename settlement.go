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
	"go.opentelemetry.io/otel/trace"

	"github.com/tallyledger/tally/config"
	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

var settlementTracer = otel.Tracer("tally.settlement")

// ProcessPurchaseRequest handles one purchase-request message delivered from
// the request queue. Returning nil acknowledges the delivery; returning an
// error leaves it on the queue for redelivery.
//
// Acknowledgment is deliberate in three non-error cases: a malformed message
// can never succeed on retry, a duplicate of an already processed purchase
// must be absorbed silently, and a request for an unknown wallet is parked as
// FAILED rather than looped forever. A purchase whose wallet cannot cover the
// amount is not an error at all: the debit does not apply and a CANCELLED
// status message is staged instead of a FINISHED one.
func (p *Payments) ProcessPurchaseRequest(ctx context.Context, body []byte) error {
	ctx, span := settlementTracer.Start(ctx, "ProcessPurchaseRequest")
	defer span.End()

	var req model.PurchaseRequestMessage
	if err := json.Unmarshal(body, &req); err != nil {
		span.RecordError(err)
		logrus.Errorf("discarding malformed purchase request: %v", err)
		return nil
	}
	if req.PurchaseID <= 0 || req.UserID <= 0 || !req.Amount.IsPositive() {
		logrus.Errorf("discarding invalid purchase request for purchase %d", req.PurchaseID)
		return nil
	}

	span.SetAttributes(attribute.Int64("purchase.id", req.PurchaseID))

	record, fresh, err := p.datasource.RecordInboxRequest(ctx, req.PurchaseID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !fresh && record.Status == model.InboxProcessed {
		span.AddEvent("Duplicate delivery absorbed")
		logrus.Infof("purchase %d already settled, skipping duplicate delivery", req.PurchaseID)
		return nil
	}

	if _, err := p.datasource.GetWallet(ctx, req.UserID); err != nil {
		if apierror.IsCode(err, apierror.ErrNotFound) {
			// Retrying cannot conjure the wallet; park the request for
			// operational follow-up.
			if markErr := p.datasource.MarkInboxFailed(ctx, req.PurchaseID); markErr != nil {
				span.RecordError(markErr)
				return markErr
			}
			logrus.Errorf("no wallet for user %d, purchase %d parked as failed", req.UserID, req.PurchaseID)
			return nil
		}
		span.RecordError(err)
		return err
	}

	cfg, err := config.Fetch()
	if err != nil {
		span.RecordError(err)
		return err
	}

	result, err := p.datasource.SettlePurchase(ctx, req, cfg.Broker.StatusQueue)
	if err != nil {
		span.RecordError(err)
		return err
	}

	switch result {
	case model.SettlementDebited:
		span.AddEvent("Purchase settled", trace.WithAttributes(attribute.Int64("purchase.id", req.PurchaseID)))
		logrus.Infof("purchase %d settled for user %d", req.PurchaseID, req.UserID)
	case model.SettlementCancelled:
		span.AddEvent("Purchase cancelled, insufficient funds")
		logrus.Infof("purchase %d cancelled, insufficient funds for user %d", req.PurchaseID, req.UserID)
	case model.SettlementDuplicate:
		span.AddEvent("Duplicate delivery absorbed")
		logrus.Infof("purchase %d settled concurrently, duplicate absorbed", req.PurchaseID)
	}

	return nil
}
