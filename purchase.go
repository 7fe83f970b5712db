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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tallyledger/tally/config"
	"github.com/tallyledger/tally/internal/apierror"
	"github.com/tallyledger/tally/model"
)

var purchaseTracer = otel.Tracer("tally.purchases")

// CreatePurchase records a new purchase in state NEW and stages its request
// message for the payment side. The purchase is visible over the API
// immediately; settlement happens asynchronously once the dispatcher ships
// the staged message.
//
// Parameters:
// - ctx: The context for the operation.
// - purchase: The purchase to create.
//
// Returns:
// - model.Purchase: The created purchase with ID, status and timestamp set.
// - error: An APIError if validation or persistence fails.
func (o *Orders) CreatePurchase(ctx context.Context, purchase model.Purchase) (model.Purchase, error) {
	ctx, span := purchaseTracer.Start(ctx, "CreatePurchase")
	defer span.End()

	if err := purchase.Validate(); err != nil {
		span.RecordError(err)
		return model.Purchase{}, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}

	cfg, err := config.Fetch()
	if err != nil {
		span.RecordError(err)
		return model.Purchase{}, err
	}

	created, err := o.datasource.CreatePurchase(ctx, purchase, cfg.Broker.RequestQueue)
	if err != nil {
		span.RecordError(err)
		return model.Purchase{}, err
	}

	span.AddEvent("Purchase created", trace.WithAttributes(attribute.Int64("purchase.id", created.ID)))
	return created, nil
}

// GetPurchase retrieves a purchase by its ID.
func (o *Orders) GetPurchase(ctx context.Context, id int64) (*model.Purchase, error) {
	ctx, span := purchaseTracer.Start(ctx, "GetPurchase")
	defer span.End()

	return o.datasource.GetPurchase(ctx, id)
}

// GetAllPurchases retrieves purchases newest first.
func (o *Orders) GetAllPurchases(ctx context.Context, limit, offset int) ([]model.Purchase, error) {
	ctx, span := purchaseTracer.Start(ctx, "GetAllPurchases")
	defer span.End()

	return o.datasource.GetAllPurchases(ctx, limit, offset)
}
