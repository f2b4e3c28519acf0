// Package engine drives a fleet of devices through one of three actions:
// generate configuration locally, diff against live state, or commit.
//
// The engine iterates the selected devices strictly in order, one at a
// time. Each device goes through assemble, render and the action
// handler; any failure along the way marks that device failed and moves
// on to the next one. Only an invalid selection query aborts a run.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/herder-tools/herder/pkg/cli"
	"github.com/herder-tools/herder/pkg/devices"
	"github.com/herder-tools/herder/pkg/transport"
	"github.com/herder-tools/herder/pkg/util"
)

// Action selects the per-device handler for a run.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionDiff     Action = "diff"
	ActionCommit   Action = "commit"
)

// outExt is the extension of generated per-device output files.
const outExt = ".out"

// Assembler produces the per-device data bundle used for rendering.
type Assembler interface {
	Get(d devices.Device) (map[string]interface{}, error)
}

// Renderer turns a device's role and data bundle into configuration text.
type Renderer interface {
	Render(role string, data map[string]interface{}) (string, error)
}

// Inventory is the optional enrichment source. When configured, its
// fragment is injected into the data bundle under the "netbox" key.
type Inventory interface {
	Device(ctx context.Context, fqdn string) (map[string]interface{}, error)
}

// Runner executes one action across a device selection.
type Runner struct {
	Directory *devices.Directory
	Assembler Assembler
	Renderer  Renderer
	Transport transport.Transport
	Inventory Inventory // nil disables enrichment
	Confirmer *Confirmer
	OutputDir string
	Logger    *logrus.Logger
	Out       io.Writer // run summary and diff output
}

// Run selects devices with query and drives each through the pipeline
// for the given action. It returns the process exit status: 0 when
// every selected device succeeded, 1 otherwise. The returned error is
// non-nil only for run-fatal conditions (bad query, unusable output
// directory); per-device failures are reported through the status.
func (r *Runner) Run(ctx context.Context, action Action, query string) (int, error) {
	r.Logger.Infof("executing %s on %q", action, query)

	selection, err := r.Directory.Select(query)
	if err != nil {
		return 1, err
	}
	if len(selection) == 0 {
		r.Logger.Warnf("no devices matched %q", query)
		return 0, nil
	}

	if action == ActionGenerate {
		if err := r.prepareOutputDir(); err != nil {
			return 1, err
		}
	}

	message := fmt.Sprintf("herder commit for %q", query)
	res := NewResult()
	for _, d := range selection {
		log := r.Logger.WithField("device", d.FQDN)

		rendered, err := r.renderDevice(ctx, d)
		if err != nil {
			log.Errorf("%v", err)
			res.RecordFailure(d.FQDN)
			continue
		}

		var ok bool
		var diff string
		switch action {
		case ActionGenerate:
			ok = r.generate(d, rendered, log)
		case ActionDiff:
			ok, diff = r.diff(ctx, d, rendered, log)
		case ActionCommit:
			ok = r.commit(ctx, d, rendered, message, log)
		default:
			return 1, fmt.Errorf("unknown action %q", action)
		}
		res.Record(d.FQDN, ok, diff)
	}

	if action == ActionDiff {
		r.printDiffs(res)
	}
	return r.summarize(res), nil
}

// renderDevice assembles the data bundle, optionally enriches it with
// inventory data, and renders the device's role template.
func (r *Runner) renderDevice(ctx context.Context, d devices.Device) (string, error) {
	data, err := r.Assembler.Get(d)
	if err != nil {
		return "", util.NewDeviceError(d.FQDN, "assemble", err)
	}

	if r.Inventory != nil {
		fragment, err := r.Inventory.Device(ctx, d.FQDN)
		if err != nil {
			return "", util.NewDeviceError(d.FQDN, "assemble", err)
		}
		data["netbox"] = fragment
	}

	rendered, err := r.Renderer.Render(d.Role, data)
	if err != nil {
		return "", util.NewDeviceError(d.FQDN, "render", err)
	}
	return rendered, nil
}

// generate writes the rendered configuration to <OutputDir>/<fqdn>.out.
func (r *Runner) generate(d devices.Device, rendered string, log *logrus.Entry) bool {
	path := filepath.Join(r.OutputDir, d.FQDN+outExt)
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		log.Errorf("%v", util.NewDeviceError(d.FQDN, "write", err))
		return false
	}
	log.Debugf("wrote %s", path)
	return true
}

// diff runs a commit-check against the device and returns the
// transport's verdict and diff text.
func (r *Runner) diff(ctx context.Context, d devices.Device, rendered string, log *logrus.Entry) (bool, string) {
	conn, err := r.Transport.Connect(ctx, d.FQDN)
	if err != nil {
		log.Errorf("%v", util.NewDeviceError(d.FQDN, "connect", err))
		return false, ""
	}
	defer r.closeConn(conn, log)

	ok, diff, err := conn.CommitCheck(ctx, rendered)
	if err != nil {
		log.Errorf("%v", util.NewDeviceError(d.FQDN, "commit-check", err))
		return false, ""
	}
	return ok, diff
}

// commit applies the rendered configuration with interactive
// confirmation. Confirmation aborts are per-device failures like any
// other commit error.
func (r *Runner) commit(ctx context.Context, d devices.Device, rendered, message string, log *logrus.Entry) bool {
	conn, err := r.Transport.Connect(ctx, d.FQDN)
	if err != nil {
		log.Errorf("%v", util.NewDeviceError(d.FQDN, "connect", err))
		return false
	}
	defer r.closeConn(conn, log)

	if err := conn.Commit(ctx, rendered, message, r.Confirmer.Confirm); err != nil {
		log.Errorf("%v", util.NewDeviceError(d.FQDN, "commit", err))
		return false
	}
	return true
}

// closeConn releases a connection. A failed close is logged and never
// masks the device's recorded outcome.
func (r *Runner) closeConn(conn transport.Connection, log *logrus.Entry) {
	if err := conn.Close(); err != nil {
		log.Warnf("closing connection: %v", err)
	}
}

// prepareOutputDir creates the output directory and purges output files
// left over from previous generate runs.
func (r *Runner) prepareOutputDir() error {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", r.OutputDir, err)
	}

	stale, err := filepath.Glob(filepath.Join(r.OutputDir, "*"+outExt))
	if err != nil {
		return fmt.Errorf("listing output directory %s: %w", r.OutputDir, err)
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("purging stale output %s: %w", path, err)
		}
	}
	return nil
}

// printDiffs emits each distinct non-empty diff with the devices that
// produced it, then a one-line count of no-difference devices.
func (r *Runner) printDiffs(res *Result) {
	for _, diff := range res.DiffTexts() {
		if diff == "" {
			continue
		}
		fqdns := res.DiffDevices(diff)
		fmt.Fprintf(r.Out, "%s\n", cli.Bold(fmt.Sprintf("--- %d device(s): %s", len(fqdns), joinFQDNs(fqdns))))
		fmt.Fprintf(r.Out, "%s\n", cli.ColorDiff(diff))
	}
	if clean := res.DiffDevices(""); len(clean) > 0 {
		fmt.Fprintf(r.Out, "%s\n", cli.Dim(fmt.Sprintf("%d device(s) with no differences", len(clean))))
	}
}

// summarize reports the run outcome and returns the exit status.
func (r *Runner) summarize(res *Result) int {
	if failed := res.Failed(); len(failed) > 0 {
		r.Logger.Errorf("run failed for %d device(s): %s", len(failed), joinFQDNs(failed))
		fmt.Fprintf(r.Out, "%s\n", cli.Red(fmt.Sprintf("FAILED: %d device(s): %s",
			len(failed), joinFQDNs(failed))))
		return 1
	}
	succeeded := res.Succeeded()
	r.Logger.Infof("run succeeded for %d device(s): %s", len(succeeded), joinFQDNs(succeeded))
	fmt.Fprintf(r.Out, "%s\n", cli.Green(fmt.Sprintf("OK: %d device(s): %s",
		len(succeeded), joinFQDNs(succeeded))))
	return 0
}

func joinFQDNs(fqdns []string) string {
	return strings.Join(fqdns, ", ")
}
