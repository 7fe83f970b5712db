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

package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tallyledger/tally"
	"github.com/tallyledger/tally/api"
	"github.com/tallyledger/tally/config"
	"github.com/tallyledger/tally/database"
	"github.com/tallyledger/tally/internal/rabbitmq"
)

// paymentsCommands starts the payment service: the wallet HTTP API, the
// consumer settling purchase requests against wallets, and the outbox
// dispatcher shipping status messages back to the order side.
func paymentsCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Start the payment service",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Fetch()
			if err != nil {
				log.Fatal(err)
			}

			db, err := database.NewPaymentSource(cfg.Payments.DataSourceDNS)
			if err != nil {
				log.Fatalf("error getting datasource: %v", err)
			}

			svc := tally.NewPayments(db)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			broker := rabbitmq.New(cfg.Broker.URL)
			connectWindow := time.Duration(cfg.Broker.ConnectTimeoutSec) * time.Second
			if err := broker.Dial(ctx, connectWindow); err != nil {
				log.Fatalf("broker unreachable within %s: %v", connectWindow, err)
			}
			defer func() {
				if err := broker.Close(); err != nil {
					logrus.Errorf("error closing broker connection: %v", err)
				}
			}()

			dispatcher := tally.NewDispatcher(db, broker,
				time.Duration(cfg.Broker.DispatchIntervalSec)*time.Second, cfg.Broker.DispatchBatchSize)
			go dispatcher.Start(ctx)

			go func() {
				if err := broker.Consume(ctx, cfg.Broker.RequestQueue, svc.ProcessPurchaseRequest); err != nil {
					logrus.Errorf("request consumer stopped: %v", err)
				}
			}()

			server := &http.Server{
				Addr:    ":" + cfg.Payments.Port,
				Handler: api.NewPaymentsAPI(svc).Router(),
			}

			go func() {
				logrus.Infof("payment service running on port %s", cfg.Payments.Port)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start payment service: %v", err)
				}
			}()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logrus.Errorf("payment service shutdown error: %v", err)
			}
		},
	}

	return cmd
}
