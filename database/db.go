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
	"database/sql"
	"log"

	_ "github.com/lib/pq"
)

// Datasource wraps the SQL connection of one side of the saga. The order and
// payment services never share a database; each cmd builds its own.
type Datasource struct {
	Conn *sql.DB
}

// NewOrderSource connects to the order-side database and ensures its tables:
// the purchase ledger plus the settlement inbox and outbox.
func NewOrderSource(dns string) (IOrderSource, error) {
	db, err := ConnectDB(dns)
	if err != nil {
		return nil, err
	}
	if err := createPurchaseTable(db); err != nil {
		return nil, err
	}
	if err := createInboxTable(db); err != nil {
		return nil, err
	}
	if err := createOutboxTable(db); err != nil {
		return nil, err
	}
	return Datasource{Conn: db}, nil
}

// NewPaymentSource connects to the payment-side database and ensures its
// tables: the wallet ledger plus the settlement inbox and outbox.
func NewPaymentSource(dns string) (IPaymentSource, error) {
	db, err := ConnectDB(dns)
	if err != nil {
		return nil, err
	}
	if err := createWalletTable(db); err != nil {
		return nil, err
	}
	if err := createInboxTable(db); err != nil {
		return nil, err
	}
	if err := createOutboxTable(db); err != nil {
		return nil, err
	}
	return Datasource{Conn: db}, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	return db, nil
}

// createPurchaseTable creates a PostgreSQL table for the Purchase struct
func createPurchaseTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS purchases (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			amount NUMERIC(20,4) NOT NULL CHECK (amount > 0),
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating purchases table: %v", err)
	}
	return err
}

// createWalletTable creates a PostgreSQL table for the Wallet struct
func createWalletTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS wallets (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE,
			balance NUMERIC(20,4) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating wallets table: %v", err)
	}
	return err
}

// createInboxTable creates the settlement inbox. The primary key on
// purchase_id is the duplicate suppressor: concurrent deliveries of the same
// message race on this insert and exactly one wins.
func createInboxTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS inbox (
			purchase_id BIGINT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'PENDING',
			received_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating inbox table: %v", err)
	}
	return err
}

// createOutboxTable creates the settlement outbox polled by the dispatcher.
func createOutboxTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS outbox (
			record_id TEXT PRIMARY KEY,
			purchase_id BIGINT NOT NULL,
			queue TEXT NOT NULL,
			payload JSONB NOT NULL,
			sent BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating outbox table: %v", err)
	}
	return err
}
