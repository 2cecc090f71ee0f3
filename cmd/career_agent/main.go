// Package main provides the career_agent CLI: it turns a resume into a validated
// career-planning report and manages the lookup cache and run archive.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "career_agent",
	Short: "Career planning from a resume",
	Long:  "career_agent ranks target companies for a resume, finds open listings at each, and recommends concrete resources for the skills the listings require.",
	// Errors are printed once by main.
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
