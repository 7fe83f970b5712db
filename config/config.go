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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_ORDERS_PORT   = "5001"
	DEFAULT_PAYMENTS_PORT = "5002"
)

var ConfigStore atomic.Value

// OrdersConfig holds the order-side settings. Each side of the saga owns its
// own database; the two services never share a data source.
type OrdersConfig struct {
	Port          string `json:"port" envconfig:"TALLY_ORDERS_PORT"`
	DataSourceDNS string `json:"data_source_dns" envconfig:"TALLY_ORDERS_DATA_SOURCE_DNS"`
}

type PaymentsConfig struct {
	Port          string `json:"port" envconfig:"TALLY_PAYMENTS_PORT"`
	DataSourceDNS string `json:"data_source_dns" envconfig:"TALLY_PAYMENTS_DATA_SOURCE_DNS"`
}

type BrokerConfig struct {
	URL                 string `json:"url" envconfig:"TALLY_BROKER_URL"`
	RequestQueue        string `json:"request_queue" envconfig:"TALLY_BROKER_REQUEST_QUEUE"`
	StatusQueue         string `json:"status_queue" envconfig:"TALLY_BROKER_STATUS_QUEUE"`
	ConnectTimeoutSec   int    `json:"connect_timeout_sec" envconfig:"TALLY_BROKER_CONNECT_TIMEOUT_SEC"`
	DispatchIntervalSec int    `json:"dispatch_interval_sec" envconfig:"TALLY_BROKER_DISPATCH_INTERVAL_SEC"`
	DispatchBatchSize   int    `json:"dispatch_batch_size" envconfig:"TALLY_BROKER_DISPATCH_BATCH_SIZE"`
}

type Configuration struct {
	ProjectName string         `json:"project_name" envconfig:"TALLY_PROJECT_NAME"`
	Orders      OrdersConfig   `json:"orders"`
	Payments    PaymentsConfig `json:"payments"`
	Broker      BrokerConfig   `json:"broker"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("tally", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called tally.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Tally Server"
	}

	if cnf.Orders.DataSourceDNS == "" {
		log.Println("Error: Orders data source DNS is empty. It's a required field.")
		return errors.New("orders data source DNS is required")
	}

	if cnf.Payments.DataSourceDNS == "" {
		log.Println("Error: Payments data source DNS is empty. It's a required field.")
		return errors.New("payments data source DNS is required")
	}

	if cnf.Broker.URL == "" {
		log.Println("Error: Broker URL is empty. It's a required field.")
		return errors.New("broker URL is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Orders.Port = strings.TrimSpace(cnf.Orders.Port)
	cnf.Payments.Port = strings.TrimSpace(cnf.Payments.Port)
	cnf.Orders.DataSourceDNS = strings.TrimSpace(cnf.Orders.DataSourceDNS)
	cnf.Payments.DataSourceDNS = strings.TrimSpace(cnf.Payments.DataSourceDNS)
	cnf.Broker.URL = strings.TrimSpace(cnf.Broker.URL)

	if cnf.Orders.Port == "" {
		cnf.Orders.Port = DEFAULT_ORDERS_PORT
		log.Printf("Warning: Orders port not specified in config. Setting default port: %s", DEFAULT_ORDERS_PORT)
	}

	if cnf.Payments.Port == "" {
		cnf.Payments.Port = DEFAULT_PAYMENTS_PORT
		log.Printf("Warning: Payments port not specified in config. Setting default port: %s", DEFAULT_PAYMENTS_PORT)
	}

	// Queue names are the broker contract both services agreed on.
	if cnf.Broker.RequestQueue == "" {
		cnf.Broker.RequestQueue = "purchase_queue"
	}
	if cnf.Broker.StatusQueue == "" {
		cnf.Broker.StatusQueue = "purchase_status_queue"
	}

	if cnf.Broker.ConnectTimeoutSec <= 0 {
		// Startup connect window. Reconnects after startup retry forever.
		cnf.Broker.ConnectTimeoutSec = 300
	}
	if cnf.Broker.DispatchIntervalSec <= 0 {
		cnf.Broker.DispatchIntervalSec = 1
	}
	if cnf.Broker.DispatchBatchSize <= 0 {
		cnf.Broker.DispatchBatchSize = 50
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
