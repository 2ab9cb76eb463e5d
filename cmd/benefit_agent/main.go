// Package main provides the entry point for the benefit optimizer CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "benefit_agent",
	Short:        "Benefit Optimizer CLI and HTTP API Server",
	Long:         "Benefit Optimizer assembles the cheapest benefit bundle that meets a set of preferences and recommends the marketplace health plan with the highest utility for a requester.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
