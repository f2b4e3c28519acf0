package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/herder-tools/herder/pkg/config"
	"github.com/herder-tools/herder/pkg/devices"
	"github.com/herder-tools/herder/pkg/engine"
	"github.com/herder-tools/herder/pkg/inventory"
	"github.com/herder-tools/herder/pkg/template"
	"github.com/herder-tools/herder/pkg/transport"
	"github.com/herder-tools/herder/pkg/util"
)

var generateCmd = &cobra.Command{
	Use:   "generate <query>",
	Short: "Render device configurations into the output directory",
	Long: `Render the configuration of every selected device into
<output_dir>/<fqdn>.out. Output files from previous generate runs are
purged first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(engine.ActionGenerate, args[0])
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <query>",
	Short: "Commit-check the selected devices and show grouped diffs",
	Long: `Render and commit-check every selected device, then print each
distinct diff once together with the devices that produced it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(engine.ActionDiff, args[0])
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit <query>",
	Short: "Commit configuration to the selected devices",
	Long: `Render and commit every selected device. Each device's diff is
shown and must be confirmed with a literal "yes" on an interactive
terminal; anything else aborts that device's commit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(engine.ActionCommit, args[0])
	},
}

// runAction wires the collaborators from the loaded config and executes
// one engine run. Per-device failures surface through the exit status,
// not as an error.
func runAction(action engine.Action, query string) error {
	runner, err := newRunner()
	if err != nil {
		return err
	}

	status, err := runner.Run(context.Background(), action, query)
	if err != nil {
		return err
	}
	exitStatus = status
	return nil
}

func newRunner() (*engine.Runner, error) {
	if cfg.BasePaths.Public == "" {
		return nil, fmt.Errorf("%w: base_paths.public is not set (see %s)", util.ErrInvalidConfig, configPath)
	}

	directory, err := devices.Load(cfg.BasePaths.Public, cfg.BasePaths.Private)
	if err != nil {
		return nil, err
	}
	hierarchy, err := config.NewHierarchy(cfg.BasePaths.Public, cfg.BasePaths.Private)
	if err != nil {
		return nil, err
	}

	tr, err := newTransport()
	if err != nil {
		return nil, err
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "output"
	}

	return &engine.Runner{
		Directory: directory,
		Assembler: hierarchy,
		Renderer:  template.NewRenderer(cfg.BasePaths.Public),
		Transport: tr,
		Inventory: newInventory(),
		Confirmer: engine.NewConfirmer(),
		OutputDir: outputDir,
		Logger:    util.Logger,
		Out:       os.Stdout,
	}, nil
}

func newTransport() (transport.Transport, error) {
	switch cfg.Transport.Driver {
	case "dryrun":
		stateDir := cfg.Transport.StateDir
		if stateDir == "" {
			stateDir = "herder-state"
		}
		return transport.NewDryRunTransport(stateDir)
	case "", "ssh":
		return transport.NewSSHTransport(transport.SSHConfig{
			Username:       cfg.Transport.Username,
			KeyPath:        cfg.Transport.SSHKeyPath,
			Port:           cfg.Transport.Port,
			Timeout:        cfg.Transport.Timeout(),
			ConfirmMinutes: cfg.Transport.ConfirmTimeout,
		})
	default:
		return nil, fmt.Errorf("%w: unknown transport driver %q", util.ErrInvalidConfig, cfg.Transport.Driver)
	}
}

// newInventory returns nil when no netbox section is configured; the
// engine then skips enrichment entirely.
func newInventory() engine.Inventory {
	if cfg.Netbox == nil {
		return nil
	}
	client := inventory.NewClient(cfg.Netbox.URL, cfg.Netbox.Token)
	if cfg.Cache != nil {
		client = client.WithCache(inventory.NewRedisCache(cfg.Cache.RedisAddr), cfg.Cache.TTL())
	}
	return client
}
