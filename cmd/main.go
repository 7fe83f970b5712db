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
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tallyledger/tally/config"
)

// Tally represents the CLI application, encapsulating the root Cobra command.
type Tally struct {
	cmd *cobra.Command
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration before any subcommand executes. Both
// services read the same file; each picks its own section from it.
func preRun(configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}
		return nil
	}
}

// NewCLI creates the command-line interface for the Tally application.
// The orders and payments services run as separate processes, each started
// by its own subcommand.
func NewCLI() *Tally {
	var configFile string

	var rootCmd = &cobra.Command{
		Use:   "tally",
		Short: "Purchase settlement ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./tally.json", "Configuration file for tally")
	rootCmd.PersistentPreRunE = preRun(&configFile)

	rootCmd.AddCommand(ordersCommands())
	rootCmd.AddCommand(paymentsCommands())

	return &Tally{cmd: rootCmd}
}

// executeCLI runs the root command of the CLI application.
func (t Tally) executeCLI() {
	if err := t.cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
