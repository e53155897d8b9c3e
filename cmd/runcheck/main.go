package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "runcheck",
	Short:   "Smoke-test harness for the document processing platform",
	Version: version,
	Long: `runcheck drives the document processing platform end to end:
upload a test document, register it, trigger a processor run, and read
the run status back.

Credentials come from the environment (SUPABASE_ANON_KEY and
SUPABASE_SERVICE_ROLE_KEY); a .env file in the working directory is
loaded automatically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(smokeCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
