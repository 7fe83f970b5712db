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
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

func (d Datasource) CreateWallet(ctx context.Context, userID int64) (model.Wallet, error) {
	wallet := model.Wallet{
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: time.Now(),
	}

	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, balance, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, wallet.UserID, wallet.Balance, wallet.CreatedAt).Scan(&wallet.ID)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Wallet{}, apierror.NewAPIError(apierror.ErrConflict, "Wallet for this user already exists", err)
			default:
				return model.Wallet{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Wallet{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create wallet", err)
	}

	return wallet, nil
}

func (d Datasource) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	wallet := model.Wallet{}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, user_id, balance, created_at
		FROM wallets
		WHERE user_id = $1
	`, userID)

	err := row.Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Wallet not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve wallet", err)
	}

	return &wallet, nil
}

// CreditWallet atomically adds amount to the wallet balance. The addition
// happens in the database, not in read-modify-write Go code, so concurrent
// deposits and debits cannot lose updates.
func (d Datasource) CreditWallet(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Wallet, error) {
	wallet := model.Wallet{}

	err := d.Conn.QueryRowContext(ctx, `
		UPDATE wallets
		SET balance = balance + $2
		WHERE user_id = $1
		RETURNING id, user_id, balance, created_at
	`, userID, amount).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Wallet not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to deposit into wallet", err)
	}

	return &wallet, nil
}
