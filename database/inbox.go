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

package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

// RecordInboxRequest inserts the inbox guard row for a purchase-request
// message. The primary key on purchase_id turns concurrent duplicate
// deliveries into a race exactly one insert wins; the losers read back the
// existing row and decide from its status.
//
// Returns the inbox record and whether this call created it.
func (d Datasource) RecordInboxRequest(ctx context.Context, purchaseID int64) (*model.InboxRecord, bool, error) {
	record := model.InboxRecord{
		PurchaseID: purchaseID,
		Status:     model.InboxPending,
		ReceivedAt: time.Now(),
	}

	res, err := d.Conn.ExecContext(ctx, `
		INSERT INTO inbox (purchase_id, status, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (purchase_id) DO NOTHING
	`, record.PurchaseID, record.Status, record.ReceivedAt)
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record inbox entry", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read inbox insert result", err)
	}
	if inserted > 0 {
		return &record, true, nil
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT purchase_id, status, received_at FROM inbox WHERE purchase_id = $1
	`, purchaseID)
	if err := row.Scan(&record.PurchaseID, &record.Status, &record.ReceivedAt); err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read existing inbox entry", err)
	}

	return &record, false, nil
}

// MarkInboxFailed records a purchase request that can never settle
// automatically, e.g. a missing wallet. The row stays FAILED for operational
// follow-up instead of being silently dropped.
func (d Datasource) MarkInboxFailed(ctx context.Context, purchaseID int64) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE inbox SET status = $2 WHERE purchase_id = $1
	`, purchaseID, model.InboxFailed)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark inbox entry failed", err)
	}
	return nil
}

// SettlePurchase applies the settlement attempt as one atomic unit. The
// first statement claims the inbox row by flipping it to PROCESSED, which
// only succeeds when no other settle has resolved the purchase yet; a
// concurrent settle serializes on that row lock rather than on the wallet,
// and the loser observes zero affected rows and skips the debit entirely.
// One purchase id can therefore never produce two applied debits.
//
// Within a won claim the debit only applies when the balance covers the
// amount; insufficient funds is a valid business outcome that resolves the
// attempt with a CANCELLED status message, never an error and never a
// silent drop.
func (d Datasource) SettlePurchase(ctx context.Context, req model.PurchaseRequestMessage, statusQueue string) (model.SettlementResult, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE inbox SET status = $2 WHERE purchase_id = $1 AND status <> $2
	`, req.PurchaseID, model.InboxProcessed)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim inbox entry", err)
	}

	claimed, err := res.RowsAffected()
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read inbox claim result", err)
	}
	if claimed == 0 {
		// Another settle already resolved this purchase.
		return model.SettlementDuplicate, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance - $2
		WHERE user_id = $1 AND balance >= $2
	`, req.UserID, req.Amount)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to debit wallet", err)
	}

	debited, err := res.RowsAffected()
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read debit result", err)
	}

	status := model.StatusFinished
	if debited == 0 {
		status = model.StatusCancelled
	}

	payload, err := json.Marshal(model.PurchaseStatusMessage{PurchaseID: req.PurchaseID, Status: status})
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal status message", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (record_id, purchase_id, queue, payload, sent, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, model.GenerateUUIDWithSuffix("obx"), req.PurchaseID, statusQueue, payload, time.Now())
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to stage status message", err)
	}

	if err := tx.Commit(); err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit settlement", err)
	}

	if debited > 0 {
		return model.SettlementDebited, nil
	}
	return model.SettlementCancelled, nil
}
