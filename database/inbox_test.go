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
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyledger/tally/model"
)

func TestRecordInboxRequestFresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inbox")).
		WithArgs(int64(42), model.InboxPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record, fresh, err := ds.RecordInboxRequest(context.Background(), 42)
	require.NoError(t, err)

	assert.True(t, fresh)
	assert.Equal(t, int64(42), record.PurchaseID)
	assert.Equal(t, model.InboxPending, record.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordInboxRequestDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	received := time.Now().Add(-time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inbox")).
		WithArgs(int64(42), model.InboxPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT purchase_id, status, received_at FROM inbox")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"purchase_id", "status", "received_at"}).
			AddRow(int64(42), string(model.InboxProcessed), received))

	record, fresh, err := ds.RecordInboxRequest(context.Background(), 42)
	require.NoError(t, err)

	assert.False(t, fresh)
	assert.Equal(t, model.InboxProcessed, record.Status)
	assert.WithinDuration(t, received, record.ReceivedAt, time.Second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkInboxFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inbox SET status = $2")).
		WithArgs(int64(42), model.InboxFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.MarkInboxFailed(context.Background(), 42)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
