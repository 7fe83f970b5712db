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
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

// CreatePurchase inserts a new purchase in state NEW and stages its
// purchase-request message in the outbox, both in a single transaction.
// Publishing after commit is exactly the "committed but never sent" race the
// outbox exists to close, so the two writes are never split.
//
// Parameters:
// - ctx: The context for the operation.
// - purchase: The purchase to create; ID, Status and CreatedAt are assigned here.
// - requestQueue: The target queue for the staged request message.
//
// Returns:
// - model.Purchase: The created purchase with its ID and timestamp populated.
// - error: An APIError on validation or database failure.
func (d Datasource) CreatePurchase(ctx context.Context, purchase model.Purchase, requestQueue string) (model.Purchase, error) {
	purchase.Status = model.StatusNew
	purchase.CreatedAt = time.Now()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return model.Purchase{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO purchases (user_id, amount, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, purchase.UserID, purchase.Amount, purchase.Description, purchase.Status, purchase.CreatedAt).Scan(&purchase.ID)
	if err != nil {
		return model.Purchase{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create purchase", err)
	}

	payload, err := json.Marshal(model.PurchaseRequestMessage{
		PurchaseID: purchase.ID,
		UserID:     purchase.UserID,
		Amount:     purchase.Amount,
	})
	if err != nil {
		return model.Purchase{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal request message", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (record_id, purchase_id, queue, payload, sent, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, model.GenerateUUIDWithSuffix("obx"), purchase.ID, requestQueue, payload, time.Now())
	if err != nil {
		return model.Purchase{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to stage request message", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Purchase{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit purchase", err)
	}

	return purchase, nil
}

func (d Datasource) GetPurchase(ctx context.Context, id int64) (*model.Purchase, error) {
	purchase := model.Purchase{}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, user_id, amount, description, status, created_at
		FROM purchases
		WHERE id = $1
	`, id)

	err := row.Scan(&purchase.ID, &purchase.UserID, &purchase.Amount, &purchase.Description, &purchase.Status, &purchase.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Purchase not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve purchase", err)
	}

	return &purchase, nil
}

func (d Datasource) GetAllPurchases(ctx context.Context, limit, offset int) ([]model.Purchase, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, user_id, amount, description, status, created_at
		FROM purchases
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve purchases", err)
	}
	defer rows.Close()

	purchases := []model.Purchase{}

	for rows.Next() {
		purchase := model.Purchase{}
		err = rows.Scan(&purchase.ID, &purchase.UserID, &purchase.Amount, &purchase.Description, &purchase.Status, &purchase.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan purchase data", err)
		}
		purchases = append(purchases, purchase)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over purchases", err)
	}

	return purchases, nil
}

// ApplyPurchaseStatus moves a purchase to a terminal status under the
// idempotency rules of the status reconciler: NEW transitions are applied,
// a repeat of the recorded terminal status is a no-op, and a different
// terminal status is a conflict that leaves the record untouched. The
// order-side inbox row is resolved in the same transaction, so a crash
// between "purchase updated" and "message accounted for" cannot happen.
func (d Datasource) ApplyPurchaseStatus(ctx context.Context, purchaseID int64, status model.PurchaseStatus) (model.TransitionResult, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current model.PurchaseStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM purchases WHERE id = $1 FOR UPDATE
	`, purchaseID).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apierror.NewAPIError(apierror.ErrNotFound, "Purchase not found", err)
		}
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock purchase", err)
	}

	if current == status {
		return model.TransitionNoop, nil
	}
	if current.Terminal() {
		// A different terminal status already won. Last-writer-wins would
		// break the single-terminal-state invariant, so the late message
		// is ignored.
		return model.TransitionConflict, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE purchases SET status = $2 WHERE id = $1
	`, purchaseID, status)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update purchase status", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inbox (purchase_id, status, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (purchase_id) DO UPDATE SET status = $2
	`, purchaseID, model.InboxProcessed, time.Now())
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record inbox entry", err)
	}

	if err := tx.Commit(); err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit status transition", err)
	}

	return model.TransitionApplied, nil
}
