package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "petclinic-e2e",
	Short: "Browser tests and fixture server for the pet clinic owner details page",
}

// Execute runs the command selected by the command line arguments.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
