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

	"github.com/shopspring/decimal"

	"github.com/tallyledger/tally/model"
)

// IOrderSource defines the data source operations of the order side.
type IOrderSource interface {
	purchase // Interface for purchase-ledger operations
	Outbox   // Interface for outbox dispatch operations
}

// IPaymentSource defines the data source operations of the payment side.
type IPaymentSource interface {
	wallet // Interface for wallet-ledger operations
	inbox  // Interface for settlement inbox operations
	Outbox // Interface for outbox dispatch operations
}

// purchase defines methods for handling the purchase ledger.
type purchase interface {
	CreatePurchase(ctx context.Context, purchase model.Purchase, requestQueue string) (model.Purchase, error)              // Creates a purchase and stages its request message atomically
	GetPurchase(ctx context.Context, id int64) (*model.Purchase, error)                                                    // Retrieves a purchase by ID
	GetAllPurchases(ctx context.Context, limit, offset int) ([]model.Purchase, error)                                      // Retrieves purchases, newest first
	ApplyPurchaseStatus(ctx context.Context, purchaseID int64, status model.PurchaseStatus) (model.TransitionResult, error) // Idempotently applies a terminal status
}

// wallet defines methods for handling the wallet ledger.
type wallet interface {
	CreateWallet(ctx context.Context, userID int64) (model.Wallet, error)                         // Creates a wallet for a user
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)                           // Retrieves a wallet by user ID
	CreditWallet(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Wallet, error) // Atomically deposits into a wallet
}

// inbox defines methods for the settlement inbox of the payment side.
type inbox interface {
	RecordInboxRequest(ctx context.Context, purchaseID int64) (*model.InboxRecord, bool, error)                               // Inserts the inbox guard row; reports whether it was fresh
	MarkInboxFailed(ctx context.Context, purchaseID int64) error                                                              // Marks a request that can never settle automatically
	SettlePurchase(ctx context.Context, req model.PurchaseRequestMessage, statusQueue string) (model.SettlementResult, error) // Atomically claims the inbox row, debits and stages the status message
}

// Outbox defines methods for the settlement outbox shared by both sides.
type Outbox interface {
	GetUnsentOutbox(ctx context.Context, limit int) ([]*model.OutboxRecord, error) // Retrieves staged records not yet published, oldest first
	MarkOutboxSent(ctx context.Context, recordID string) error                     // Marks a record published after broker acknowledgment
}
