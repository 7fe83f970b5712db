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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

func TestCreatePurchase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO purchases")).
		WithArgs(int64(7), sqlmock.AnyArg(), "coffee beans", model.StatusNew, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).
		WithArgs(sqlmock.AnyArg(), int64(42), "purchase_queue", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	purchase, err := ds.CreatePurchase(context.Background(), model.Purchase{
		UserID:      7,
		Amount:      decimal.NewFromFloat(12.50),
		Description: "coffee beans",
	}, "purchase_queue")
	require.NoError(t, err)

	assert.Equal(t, int64(42), purchase.ID)
	assert.Equal(t, model.StatusNew, purchase.Status)
	assert.False(t, purchase.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePurchaseRollsBackOnOutboxFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO purchases")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = ds.CreatePurchase(context.Background(), model.Purchase{
		UserID:      7,
		Amount:      decimal.NewFromInt(5),
		Description: "coffee beans",
	}, "purchase_queue")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPurchase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, amount, description, status, created_at")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "description", "status", "created_at"}).
			AddRow(int64(42), int64(7), "12.5", "coffee beans", string(model.StatusFinished), now))

	purchase, err := ds.GetPurchase(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), purchase.ID)
	assert.Equal(t, model.StatusFinished, purchase.Status)
	assert.True(t, purchase.Amount.Equal(decimal.NewFromFloat(12.5)))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPurchaseNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, amount, description, status, created_at")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "description", "status", "created_at"}))

	_, err = ds.GetPurchase(context.Background(), 99)
	assert.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllPurchases(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "description", "status", "created_at"}).
			AddRow(int64(2), int64(7), "3", "tea", string(model.StatusNew), now).
			AddRow(int64(1), int64(7), "12.5", "coffee beans", string(model.StatusFinished), now.Add(-time.Minute)))

	purchases, err := ds.GetAllPurchases(context.Background(), 2, 0)
	require.NoError(t, err)

	require.Len(t, purchases, 2)
	assert.Equal(t, int64(2), purchases[0].ID)
	assert.Equal(t, int64(1), purchases[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPurchaseStatus(t *testing.T) {
	tests := []struct {
		name    string
		current model.PurchaseStatus
		apply   model.PurchaseStatus
		want    model.TransitionResult
		mutates bool
	}{
		{name: "new to finished applies", current: model.StatusNew, apply: model.StatusFinished, want: model.TransitionApplied, mutates: true},
		{name: "new to cancelled applies", current: model.StatusNew, apply: model.StatusCancelled, want: model.TransitionApplied, mutates: true},
		{name: "repeat terminal is noop", current: model.StatusFinished, apply: model.StatusFinished, want: model.TransitionNoop},
		{name: "conflicting terminal is rejected", current: model.StatusCancelled, apply: model.StatusFinished, want: model.TransitionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			ds := Datasource{Conn: db}

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM purchases WHERE id = $1 FOR UPDATE")).
				WithArgs(int64(42)).
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(tt.current)))

			if tt.mutates {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases SET status = $2 WHERE id = $1")).
					WithArgs(int64(42), tt.apply).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inbox")).
					WithArgs(int64(42), model.InboxProcessed, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			result, err := ds.ApplyPurchaseStatus(context.Background(), 42, tt.apply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestApplyPurchaseStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM purchases WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err = ds.ApplyPurchaseStatus(context.Background(), 99, model.StatusFinished)
	assert.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}
