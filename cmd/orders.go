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

// ordersCommands starts the order service: the purchase HTTP API, the outbox
// dispatcher shipping purchase requests to the payment side, and the consumer
// reconciling terminal statuses reported back.
func ordersCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Start the order service",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Fetch()
			if err != nil {
				log.Fatal(err)
			}

			db, err := database.NewOrderSource(cfg.Orders.DataSourceDNS)
			if err != nil {
				log.Fatalf("error getting datasource: %v", err)
			}

			svc := tally.NewOrders(db)

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
				if err := broker.Consume(ctx, cfg.Broker.StatusQueue, svc.ProcessStatusMessage); err != nil {
					logrus.Errorf("status consumer stopped: %v", err)
				}
			}()

			server := &http.Server{
				Addr:    ":" + cfg.Orders.Port,
				Handler: api.NewOrdersAPI(svc).Router(),
			}

			go func() {
				logrus.Infof("order service running on port %s", cfg.Orders.Port)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start order service: %v", err)
				}
			}()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logrus.Errorf("order service shutdown error: %v", err)
			}
		},
	}

	return cmd
}
