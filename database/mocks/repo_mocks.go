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
package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/tallyledger/tally/model"
)

// MockOrderSource is a mock implementation of the IOrderSource interface
type MockOrderSource struct {
	mock.Mock
}

// Purchase methods

func (m *MockOrderSource) CreatePurchase(ctx context.Context, purchase model.Purchase, requestQueue string) (model.Purchase, error) {
	args := m.Called(ctx, purchase, requestQueue)
	return args.Get(0).(model.Purchase), args.Error(1)
}

func (m *MockOrderSource) GetPurchase(ctx context.Context, id int64) (*model.Purchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockOrderSource) GetAllPurchases(ctx context.Context, limit, offset int) ([]model.Purchase, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Purchase), args.Error(1)
}

func (m *MockOrderSource) ApplyPurchaseStatus(ctx context.Context, purchaseID int64, status model.PurchaseStatus) (model.TransitionResult, error) {
	args := m.Called(ctx, purchaseID, status)
	return args.Get(0).(model.TransitionResult), args.Error(1)
}

// Outbox methods

func (m *MockOrderSource) GetUnsentOutbox(ctx context.Context, limit int) ([]*model.OutboxRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxRecord), args.Error(1)
}

func (m *MockOrderSource) MarkOutboxSent(ctx context.Context, recordID string) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}

// MockPaymentSource is a mock implementation of the IPaymentSource interface
type MockPaymentSource struct {
	mock.Mock
}

// Wallet methods

func (m *MockPaymentSource) CreateWallet(ctx context.Context, userID int64) (model.Wallet, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Wallet), args.Error(1)
}

func (m *MockPaymentSource) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockPaymentSource) CreditWallet(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Wallet, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

// Inbox methods

func (m *MockPaymentSource) RecordInboxRequest(ctx context.Context, purchaseID int64) (*model.InboxRecord, bool, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.InboxRecord), args.Bool(1), args.Error(2)
}

func (m *MockPaymentSource) MarkInboxFailed(ctx context.Context, purchaseID int64) error {
	args := m.Called(ctx, purchaseID)
	return args.Error(0)
}

func (m *MockPaymentSource) SettlePurchase(ctx context.Context, req model.PurchaseRequestMessage, statusQueue string) (model.SettlementResult, error) {
	args := m.Called(ctx, req, statusQueue)
	return args.Get(0).(model.SettlementResult), args.Error(1)
}

// Outbox methods

func (m *MockPaymentSource) GetUnsentOutbox(ctx context.Context, limit int) ([]*model.OutboxRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxRecord), args.Error(1)
}

func (m *MockPaymentSource) MarkOutboxSent(ctx context.Context, recordID string) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}
