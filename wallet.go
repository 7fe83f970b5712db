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

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

var walletTracer = otel.Tracer("tally.wallets")

// CreateWallet opens an empty wallet for a user. Each user holds at most one
// wallet; a second create reports a conflict.
func (p *Payments) CreateWallet(ctx context.Context, userID int64) (model.Wallet, error) {
	ctx, span := walletTracer.Start(ctx, "CreateWallet")
	defer span.End()

	if userID <= 0 {
		return model.Wallet{}, apierror.NewAPIError(apierror.ErrInvalidInput, "User ID must be positive", nil)
	}

	wallet, err := p.datasource.CreateWallet(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return model.Wallet{}, err
	}

	span.AddEvent("Wallet created", trace.WithAttributes(attribute.Int64("wallet.user_id", userID)))
	return wallet, nil
}

// GetWallet retrieves a wallet by user ID.
func (p *Payments) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	ctx, span := walletTracer.Start(ctx, "GetWallet")
	defer span.End()

	return p.datasource.GetWallet(ctx, userID)
}

// DepositWallet adds funds to a wallet. The amount must be positive; the
// balance arithmetic itself happens atomically in the database.
func (p *Payments) DepositWallet(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Wallet, error) {
	ctx, span := walletTracer.Start(ctx, "DepositWallet")
	defer span.End()

	if !amount.IsPositive() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Deposit amount must be positive", nil)
	}

	wallet, err := p.datasource.CreditWallet(ctx, userID, amount)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.AddEvent("Wallet credited", trace.WithAttributes(attribute.Int64("wallet.user_id", userID)))
	return wallet, nil
}
