package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/envconf"
	"github.com/jackc/petclinic-e2e/browserz"
	"github.com/jackc/petclinic-e2e/ownerdetails"
	"github.com/jackc/petclinic-e2e/smoke"
	"github.com/spf13/cobra"
)

var smokeEnvconf = envconf.New()

// smokeCmd represents the smoke command.
var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run the owner details scenarios against a running application",

	Run: func(cmd *cobra.Command, args []string) {
		ownerID, _ := cmd.Flags().GetInt("owner-id")
		logFormat, _ := cmd.Flags().GetString("log-format")
		names, _ := cmd.Flags().GetStringSlice("scenario")

		logger := setupLogger(logFormat)

		ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
		defer cancel()
		ctx = logger.WithContext(ctx)

		browserConfig, err := browserz.ConfigFromValues(smokeEnvconf.Value)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid browser configuration")
		}

		timeout := ownerdetails.DefaultTimeout
		if s := smokeEnvconf.Value("BROWSER_TIMEOUT"); s != "" {
			timeout, err = time.ParseDuration(s)
			if err != nil {
				logger.Fatal().Err(err).Msg("Failed to parse BROWSER_TIMEOUT")
			}
		}

		concurrency, err := strconv.Atoi(smokeEnvconf.Value("SMOKE_CONCURRENCY"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse SMOKE_CONCURRENCY")
		}

		scenarios, err := selectScenarios(smoke.Scenarios(), names)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to select scenarios")
		}

		browser, err := browserz.Launch(ctx, browserConfig)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start browser")
		}
		defer browser.Close()

		runner := &smoke.Runner{
			Browser:     browser.Browser,
			BaseURL:     smokeEnvconf.Value("PETCLINIC_URL"),
			OwnerID:     ownerID,
			Concurrency: concurrency,
			Timeout:     timeout,
		}
		results := runner.Run(ctx, scenarios)

		failed := smoke.Failed(results)
		logger.Info().Int("passed", len(results)-len(failed)).Int("failed", len(failed)).Msg("Smoke run finished")
		if len(failed) > 0 {
			browser.Close()
			os.Exit(1)
		}
	},
}

// selectScenarios returns the scenarios named by names in catalogue order. Empty names selects all of them.
func selectScenarios(all []smoke.Scenario, names []string) ([]smoke.Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	var selected []smoke.Scenario
	for _, s := range all {
		if wanted[s.Name] {
			selected = append(selected, s)
			delete(wanted, s.Name)
		}
	}
	for name := range wanted {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}

	return selected, nil
}

func init() {
	smokeEnvconf.Register(envconf.Item{Name: "PETCLINIC_URL", Default: "http://127.0.0.1:8080", Description: "Base URL of the application under test"})
	smokeEnvconf.Register(envconf.Item{Name: "SMOKE_CONCURRENCY", Default: "4", Description: "Maximum number of scenarios run at once"})
	smokeEnvconf.Register(envconf.Item{Name: "BROWSER_TIMEOUT", Default: ownerdetails.DefaultTimeout.String(), Description: "How long to wait for an element"})
	smokeEnvconf.Register(envconf.Item{Name: "BROWSER_CONTROL_URL", Default: "", Description: "DevTools URL of a running browser. If set no browser is launched."})
	smokeEnvconf.Register(envconf.Item{Name: "BROWSER_BIN", Default: "", Description: "Browser executable. The system browser is used if not set."})
	smokeEnvconf.Register(envconf.Item{Name: "BROWSER_HEADLESS", Default: "true", Description: "Run the browser without a window"})
	smokeEnvconf.Register(envconf.Item{Name: "BROWSER_NO_SANDBOX", Default: "false", Description: "Disable the browser sandbox. Needed when running as root in a container."})
	smokeEnvconf.Register(envconf.Item{Name: "BROWSER_SLOW_MOTION", Default: "", Description: "Delay before each input action, e.g. 500ms"})
	smokeEnvconf.Register(envconf.Item{Name: "BROWSER_TRACE", Default: "false", Description: "Log every browser input action"})

	long := &strings.Builder{}
	long.WriteString("Run the owner details scenarios against a running application.\n\nConfigure with the following environment variables:\n\n")
	for _, item := range smokeEnvconf.Items() {
		long.WriteString(fmt.Sprintf("  %s\n    Default: %s\n    %s\n\n", item.Name, item.Default, item.Description))
	}
	smokeCmd.Long = long.String()

	rootCmd.AddCommand(smokeCmd)

	smokeCmd.Flags().Int("owner-id", 1, "The owner whose details page is tested.")
	smokeCmd.Flags().String("log-format", "console", "Log format (json or console)")
	smokeCmd.Flags().StringSlice("scenario", nil, "Run only the named scenario. May be repeated.")
}
