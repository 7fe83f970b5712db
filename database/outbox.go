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

	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

// GetUnsentOutbox retrieves staged records not yet published, oldest first.
// Oldest-first keeps per-purchase ordering: a purchase's records entered the
// outbox in the order its state changed.
func (d Datasource) GetUnsentOutbox(ctx context.Context, limit int) ([]*model.OutboxRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT record_id, purchase_id, queue, payload, sent, created_at
		FROM outbox
		WHERE sent = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve outbox records", err)
	}
	defer rows.Close()

	records := []*model.OutboxRecord{}

	for rows.Next() {
		record := model.OutboxRecord{}
		err = rows.Scan(&record.RecordID, &record.PurchaseID, &record.Queue, &record.Payload, &record.Sent, &record.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan outbox record", err)
		}
		records = append(records, &record)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over outbox records", err)
	}

	return records, nil
}

// MarkOutboxSent flips a record to sent. Called only after the broker has
// confirmed the publish; a crash before this update re-sends the record,
// which the receiving inbox absorbs.
func (d Datasource) MarkOutboxSent(ctx context.Context, recordID string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE outbox SET sent = TRUE WHERE record_id = $1
	`, recordID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark outbox record sent", err)
	}
	return nil
}
