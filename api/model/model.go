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
package model

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/tallyledger/tally/model"
)

type CreatePurchase struct {
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type CreateWallet struct {
	UserID int64 `json:"user_id"`
}

type DepositWallet struct {
	Amount decimal.Decimal `json:"amount"`
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount type")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

func (p *CreatePurchase) ValidateCreatePurchase() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.UserID, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.Amount, validation.By(positiveAmount)),
		validation.Field(&p.Description, validation.Required),
	)
}

func (w *CreateWallet) ValidateCreateWallet() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.UserID, validation.Required, validation.Min(int64(1))),
	)
}

func (d *DepositWallet) ValidateDepositWallet() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Amount, validation.By(positiveAmount)),
	)
}

func (p *CreatePurchase) ToPurchase() model.Purchase {
	return model.Purchase{
		UserID:      p.UserID,
		Amount:      p.Amount,
		Description: p.Description,
	}
}
