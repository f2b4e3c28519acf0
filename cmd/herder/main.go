// Herder - configuration manager for network devices
//
// Herder drives a fleet of devices from one repository of role templates
// and hierarchical data:
//
//	herder generate 'role:leaf'   # render configs into the output dir
//	herder diff 'site:ny'         # commit-check against live devices
//	herder commit leaf1.example.com  # apply, with interactive confirmation
//
// The query selects devices by FQDN glob, role:<name> or site:<name>.
// Exit status is 0 when every selected device succeeded, 1 otherwise.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/herder-tools/herder/pkg/config"
	"github.com/herder-tools/herder/pkg/util"
	"github.com/herder-tools/herder/pkg/version"
)

var (
	configPath      string
	verbose         bool
	quiet           bool
	transportDriver string

	cfg *config.Config

	// exitStatus carries the run outcome from RunE to main.
	exitStatus int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitStatus)
}

var rootCmd = &cobra.Command{
	Use:           "herder",
	Short:         "Configuration manager for network devices",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Herder generates, diffs and commits network device configurations
from a single templated source of truth.

Devices are processed one at a time; a failing device is reported and
skipped so the rest of the selection still runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return fmt.Errorf("--verbose and --quiet are mutually exclusive")
		}
		switch {
		case verbose:
			util.SetLogLevel("debug")
		case quiet:
			util.SetLogLevel("warn")
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if transportDriver != "" {
			cfg.Transport.Driver = transportDriver
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("herder " + version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/herder/config.yaml",
		"Main configuration file to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose (debug) logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings")
	rootCmd.PersistentFlags().StringVar(&transportDriver, "transport", "",
		"Override the transport driver (ssh, dryrun)")

	rootCmd.AddCommand(generateCmd, diffCmd, commitCmd, versionCmd)
}
