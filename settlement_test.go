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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tallyledger/tally/config"
	"github.com/tallyledger/tally/database/mocks"
	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

func mockBrokerConfig() {
	config.MockConfig(&config.Configuration{
		Broker: config.BrokerConfig{
			RequestQueue: "purchase_queue",
			StatusQueue:  "purchase_status_queue",
		},
	})
}

func requestBody(t *testing.T, purchaseID, userID int64, amount string) []byte {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	body, err := json.Marshal(model.PurchaseRequestMessage{PurchaseID: purchaseID, UserID: userID, Amount: amt})
	require.NoError(t, err)
	return body
}

func TestProcessPurchaseRequestSettles(t *testing.T) {
	mockBrokerConfig()
	ds := new(mocks.MockPaymentSource)
	svc := NewPayments(ds)

	ds.On("RecordInboxRequest", mock.Anything, int64(42)).
		Return(&model.InboxRecord{PurchaseID: 42, Status: model.InboxPending}, true, nil)
	ds.On("GetWallet", mock.Anything, int64(7)).
		Return(&model.Wallet{ID: 1, UserID: 7, Balance: decimal.NewFromInt(100)}, nil)
	ds.On("SettlePurchase", mock.Anything, mock.Anything, "purchase_status_queue").
		Return(model.SettlementDebited, nil)

	err := svc.ProcessPurchaseRequest(context.Background(), requestBody(t, 42, 7, "12.50"))
	assert.NoError(t, err)

	ds.AssertExpectations(t)
}

func TestProcessPurchaseRequestInsufficientFunds(t *testing.T) {
	mockBrokerConfig()
	ds := new(mocks.MockPaymentSource)
	svc := NewPayments(ds)

	ds.On("RecordInboxRequest", mock.Anything, int64(42)).
		Return(&model.InboxRecord{PurchaseID: 42, Status: model.InboxPending}, true, nil)
	ds.On("GetWallet", mock.Anything, int64(7)).
		Return(&model.Wallet{ID: 1, UserID: 7, Balance: decimal.NewFromInt(1)}, nil)
	ds.On("SettlePurchase", mock.Anything, mock.Anything, "purchase_status_queue").
		Return(model.SettlementCancelled, nil)

	// Insufficient funds is a resolved outcome, not an error: the delivery
	// is acknowledged and the CANCELLED message is already staged.
	err := svc.ProcessPurchaseRequest(context.Background(), requestBody(t, 42, 7, "1000"))
	assert.NoError(t, err)

	ds.AssertExpectations(t)
}

func TestProcessPurchaseRequestDuplicateSkipsSettlement(t *testing.T) {
	mockBrokerConfig()
	ds := new(mocks.MockPaymentSource)
	svc := NewPayments(ds)

	ds.On("RecordInboxRequest", mock.Anything, int64(42)).
		Return(&model.InboxRecord{PurchaseID: 42, Status: model.InboxProcessed}, false, nil)

	err := svc.ProcessPurchaseRequest(context.Background(), requestBody(t, 42, 7, "12.50"))
	assert.NoError(t, err)

	ds.AssertNotCalled(t, "SettlePurchase", mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}

func TestProcessPurchaseRequestPendingDuplicateReprocesses(t *testing.T) {
	mockBrokerConfig()
	ds := new(mocks.MockPaymentSource)
	svc := NewPayments(ds)

	// A PENDING row means a previous attempt crashed before settling; the
	// redelivery must run to completion.
	ds.On("RecordInboxRequest", mock.Anything, int64(42)).
		Return(&model.InboxRecord{PurchaseID: 42, Status: model.InboxPending}, false, nil)
	ds.On("GetWallet", mock.Anything, int64(7)).
		Return(&model.Wallet{ID: 1, UserID: 7, Balance: decimal.NewFromInt(100)}, nil)
	ds.On("SettlePurchase", mock.Anything, mock.Anything, "purchase_status_queue").
		Return(model.SettlementDebited, nil)

	err := svc.ProcessPurchaseRequest(context.Background(), requestBody(t, 42, 7, "12.50"))
	assert.NoError(t, err)

	ds.AssertExpectations(t)
}

func TestProcessPurchaseRequestConcurrentDuplicateAbsorbed(t *testing.T) {
	mockBrokerConfig()
	ds := new(mocks.MockPaymentSource)
	svc := NewPayments(ds)

	// Two consumers raced: this one saw a PENDING inbox row, but by the time
	// its settle transaction ran, the other had already resolved the
	// purchase. The claim loses, no second debit happens, and the delivery
	// is acknowledged.
	ds.On("RecordInboxRequest", mock.Anything, int64(42)).
		Return(&model.InboxRecord{PurchaseID: 42, Status: model.InboxPending}, false, nil)
	ds.On("GetWallet", mock.Anything, int64(7)).
		Return(&model.Wallet{ID: 1, UserID: 7, Balance: decimal.NewFromInt(100)}, nil)
	ds.On("SettlePurchase", mock.Anything, mock.Anything, "purchase_status_queue").
		Return(model.SettlementDuplicate, nil)

	err := svc.ProcessPurchaseRequest(context.Background(), requestBody(t, 42, 7, "12.50"))
	assert.NoError(t, err)

	ds.AssertExpectations(t)
}

func TestProcessPurchaseRequestUnknownWalletParksRequest(t *testing.T) {
	mockBrokerConfig()
	ds := new(mocks.MockPaymentSource)
	svc := NewPayments(ds)

	ds.On("RecordInboxRequest", mock.Anything, int64(42)).
		Return(&model.InboxRecord{PurchaseID: 42, Status: model.InboxPending}, true, nil)
	ds.On("GetWallet", mock.Anything, int64(99)).
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Wallet not found", nil))
	ds.On("MarkInboxFailed", mock.Anything, int64(42)).Return(nil)

	err := svc.ProcessPurchaseRequest(context.Background(), requestBody(t, 42, 99, "12.50"))
	assert.NoError(t, err)

	ds.AssertNotCalled(t, "SettlePurchase", mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}

func TestProcessPurchaseRequestMalformedAcked(t *testing.T) {
	mockBrokerConfig()
	ds := new(mocks.MockPaymentSource)
	svc := NewPayments(ds)

	err := svc.ProcessPurchaseRequest(context.Background(), []byte("not json"))
	assert.NoError(t, err)

	err = svc.ProcessPurchaseRequest(context.Background(), []byte(`{"purchase_id":0,"user_id":7,"amount":5}`))
	assert.NoError(t, err)

	ds.AssertNotCalled(t, "RecordInboxRequest", mock.Anything, mock.Anything)
}

func TestProcessPurchaseRequestSettleErrorRequeues(t *testing.T) {
	mockBrokerConfig()
	ds := new(mocks.MockPaymentSource)
	svc := NewPayments(ds)

	ds.On("RecordInboxRequest", mock.Anything, int64(42)).
		Return(&model.InboxRecord{PurchaseID: 42, Status: model.InboxPending}, true, nil)
	ds.On("GetWallet", mock.Anything, int64(7)).
		Return(&model.Wallet{ID: 1, UserID: 7, Balance: decimal.NewFromInt(100)}, nil)
	ds.On("SettlePurchase", mock.Anything, mock.Anything, "purchase_status_queue").
		Return(model.SettlementResult(""), apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit settlement", nil))

	err := svc.ProcessPurchaseRequest(context.Background(), requestBody(t, 42, 7, "12.50"))
	assert.Error(t, err)

	ds.AssertExpectations(t)
}
