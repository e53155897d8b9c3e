package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/validai/runcheck/internal/config"
	"github.com/validai/runcheck/internal/fixture"
	"github.com/validai/runcheck/internal/scenario"
	"github.com/validai/runcheck/internal/supabase"
)

func newClient(cfg config.Config) (*supabase.Client, error) {
	timeout, err := time.ParseDuration(cfg.Platform.FunctionTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid platform.function_timeout %q: %w", cfg.Platform.FunctionTimeout, err)
	}
	return supabase.New(cfg.Platform.BaseURL, cfg.Platform.ServiceRoleKey, timeout), nil
}

func newScenario(cfg config.Config, client *supabase.Client) (*scenario.Scenario, error) {
	delay, err := time.ParseDuration(cfg.Smoke.StatusDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid smoke.status_delay %q: %w", cfg.Smoke.StatusDelay, err)
	}
	return scenario.New(client, scenario.Options{
		ProcessorID:    cfg.Smoke.ProcessorID,
		OrganizationID: cfg.Smoke.OrganizationID,
		Bucket:         cfg.Smoke.Bucket,
		StatusDelay:    delay,
		Out:            os.Stdout,
	}), nil
}

// --- smoke ---

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run the full four-step smoke test",
	Long: `Run the full smoke test: upload the test document, create its
database record, trigger the configured processor, and check the run
status once after a short delay.

Examples:
  runcheck smoke
  runcheck smoke --file ./contract.pdf
  runcheck smoke --watch --watch-timeout 5m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		watch, _ := cmd.Flags().GetBool("watch")
		watchTimeout, _ := cmd.Flags().GetDuration("watch-timeout")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if file == "" {
			file = cfg.Smoke.DocumentFile
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		sc, err := newScenario(cfg, client)
		if err != nil {
			return err
		}

		f, err := fixture.Load(file)
		if err != nil {
			return err
		}

		printStep("Running smoke test against %s", client.BaseURL())
		rep, err := sc.Run(cmd.Context(), f)
		if err != nil {
			printError("Smoke test failed: %v", err)
			return err
		}

		if watch {
			run, err := sc.WaitForCompletion(cmd.Context(), rep.RunID, 2*time.Second, watchTimeout)
			if err != nil {
				return err
			}
			if run.Status != "completed" {
				return fmt.Errorf("run %s ended with status %s", rep.RunID, run.Status)
			}
		}

		printSuccess("Smoke test passed")
		return nil
	},
}

func init() {
	smokeCmd.Flags().String("file", "", "test document to upload (defaults to the configured fixture)")
	smokeCmd.Flags().Bool("watch", false, "poll until the run reaches a terminal state")
	smokeCmd.Flags().Duration("watch-timeout", 2*time.Minute, "how long --watch waits before giving up")
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a document and create its database record",
	Long: `Run only the first two steps of the smoke test: upload the
document to storage and create the document record. Prints the document
id to pass to trigger.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		file := cfg.Smoke.DocumentFile
		if len(args) == 1 {
			file = args[0]
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		sc, err := newScenario(cfg, client)
		if err != nil {
			return err
		}

		f, err := fixture.Load(file)
		if err != nil {
			return err
		}

		path, err := sc.UploadFixture(cmd.Context(), f)
		if err != nil {
			return err
		}
		doc, err := sc.CreateRecord(cmd.Context(), f, path)
		if err != nil {
			return err
		}

		printSuccess("Document ready")
		printStatus("Document ID", "%s", doc.ID)
		printStatus("Storage path", "%s", path)
		return nil
	},
}

// --- trigger ---

var triggerCmd = &cobra.Command{
	Use:   "trigger <document-id>",
	Short: "Trigger a processor run for an existing document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		sc, err := newScenario(cfg, client)
		if err != nil {
			return err
		}

		runID, err := sc.ExecuteRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printSuccess("Run initiated")
		printStatus("Run ID", "%s", runID)
		return nil
	},
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Check the status of a processor run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		sc, err := newScenario(cfg, client)
		if err != nil {
			return err
		}

		run, err := sc.CheckRunStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if run == nil {
			printWarning("Run %s not visible yet", args[0])
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage runcheck configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadUnchecked()
		if err != nil {
			return err
		}

		for _, info := range config.ShowAll(cfg) {
			printStatus(info.Key, "%s", info.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file. Secrets cannot
be stored; they are read from the environment only.

Valid keys:
  ` + joinKeys(),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s", args[0])
		return nil
	},
}

func joinKeys() string {
	out := ""
	for _, k := range config.ValidKeys() {
		out += "\n  " + k
	}
	return out
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
