// Package main provides the entry point for the marketing hub API server and its
// offline lead tools.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "marketing_hub",
	Short: "Marketing Hub HTTP API Server",
	Long:  "Marketing Hub manages sales leads, detects duplicate leads, scores and segments them, and runs email campaigns via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
