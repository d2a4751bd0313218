package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "washpos",
	Short: "Offline-first point of sale for a laundromat",
	Long: `washpos keeps the time clock, daily sales and supply inventory in a local
database and pushes unsaved records to the remote server when it is reachable.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (env vars take precedence)")
	rootCmd.AddCommand(serveCmd, syncCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
