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

	"github.com/tallyledger/tally/database"
)

// Publisher sends a message to a durable queue and returns only after the
// broker has taken responsibility for it.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// Orders is the order-side service: it owns the purchase ledger and reconciles
// terminal statuses reported by the payment side.
type Orders struct {
	datasource database.IOrderSource
}

// Payments is the payment-side service: it owns the wallet ledger and settles
// purchase requests reported by the order side.
type Payments struct {
	datasource database.IPaymentSource
}

// NewOrders initializes the order-side service with the provided datasource.
func NewOrders(db database.IOrderSource) *Orders {
	return &Orders{datasource: db}
}

// NewPayments initializes the payment-side service with the provided datasource.
func NewPayments(db database.IPaymentSource) *Payments {
	return &Payments{datasource: db}
}
