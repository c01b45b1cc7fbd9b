/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/deelrate-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// exchangeLedgerWorkerCmd represents the exchange-ledger-worker command
var exchangeLedgerWorkerCmd = &cobra.Command{
	Use:   "exchange-ledger-worker",
	Short: "Start the Exchange Ledger worker",
	Long: `The Exchange Ledger worker consumes exchange completed events from JetStream
and appends each completion to the ledger table exactly once.`,
	Run: bootstrap.StartExchangeLedgerWorker,
}

func init() {
	rootCmd.AddCommand(exchangeLedgerWorkerCmd)
}
