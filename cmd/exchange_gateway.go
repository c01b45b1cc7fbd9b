/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/deelrate-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// exchangeGatewayCmd represents the exchange-gateway command
var exchangeGatewayCmd = &cobra.Command{
	Use:   "exchange-gateway",
	Short: "Start the Exchange Gateway service",
	Long: `The Exchange Gateway serves the HTTP API for exchange rates and exchange orders.
It resolves rates through the cached rate provider, drives orders through their
lifecycle and publishes completion events to JetStream.`,
	Run: bootstrap.StartExchangeGateway,
}

func init() {
	rootCmd.AddCommand(exchangeGatewayCmd)
}
