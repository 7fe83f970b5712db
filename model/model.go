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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// The broker contract carries amounts as bare JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// PurchaseStatus is the lifecycle state of a purchase. A purchase is created
// NEW and moves to exactly one of the terminal states.
type PurchaseStatus string

const (
	StatusNew       PurchaseStatus = "NEW"
	StatusFinished  PurchaseStatus = "FINISHED"
	StatusCancelled PurchaseStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are permitted from s.
func (s PurchaseStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// InboxStatus tracks how far a consumed message got. Only PROCESSED
// suppresses redelivery; PENDING and FAILED rows may be processed again.
type InboxStatus string

const (
	InboxPending   InboxStatus = "PENDING"
	InboxProcessed InboxStatus = "PROCESSED"
	InboxFailed    InboxStatus = "FAILED"
)

// TransitionResult describes the outcome of applying a status to a purchase.
type TransitionResult string

const (
	TransitionApplied  TransitionResult = "APPLIED"
	TransitionNoop     TransitionResult = "NOOP"
	TransitionConflict TransitionResult = "CONFLICT"
)

// SettlementResult describes the outcome of a settlement attempt.
type SettlementResult string

const (
	SettlementDebited   SettlementResult = "DEBITED"
	SettlementCancelled SettlementResult = "CANCELLED"
	SettlementDuplicate SettlementResult = "DUPLICATE"
)

// Purchase is owned exclusively by the order side. Once terminal it is
// immutable; a duplicate status message must not re-mutate it.
type Purchase struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      PurchaseStatus  `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks the purchase input before it reaches the ledger.
func (p *Purchase) Validate() error {
	if p.UserID <= 0 {
		return errors.New("purchase user id must be positive")
	}
	if !p.Amount.IsPositive() {
		return errors.New("purchase amount must be positive")
	}
	return nil
}

// Wallet is owned exclusively by the payment side. The balance never goes
// below zero; an insufficient-funds debit leaves it untouched.
type Wallet struct {
	ID        int64           `json:"-"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// OutboxRecord stages an outgoing message in the same transaction as the
// state change that produced it. A dispatcher publishes unsent records and
// marks them sent, so "state changed" always implies "message will be sent".
type OutboxRecord struct {
	RecordID   string          `json:"record_id"`
	PurchaseID int64           `json:"purchase_id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Sent       bool            `json:"sent"`
	CreatedAt  time.Time       `json:"created_at"`
}

// InboxRecord guards inbound message processing. The unique purchase id key
// makes redelivery of an already-processed message a no-op.
type InboxRecord struct {
	PurchaseID int64       `json:"purchase_id"`
	Status     InboxStatus `json:"status"`
	ReceivedAt time.Time   `json:"received_at"`
}

// PurchaseRequestMessage is published by the order side when a purchase is
// created and consumed by the payment side.
type PurchaseRequestMessage struct {
	PurchaseID int64           `json:"purchase_id"`
	UserID     int64           `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// PurchaseStatusMessage carries the terminal outcome of a settlement attempt
// back to the order side.
type PurchaseStatusMessage struct {
	PurchaseID int64          `json:"purchase_id"`
	Status     PurchaseStatus `json:"status"`
}

// GenerateUUIDWithSuffix generates a UUID with a given module name as a suffix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}
