package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
)

// DryRunTransport simulates devices with per-FQDN state files on disk.
// CommitCheck diffs the candidate against the stored "running" config
// and Commit replaces it, after confirmation. Useful for rehearsing runs
// without touching real devices, and for tests.
type DryRunTransport struct {
	StateDir string
}

// NewDryRunTransport creates the state directory if needed.
func NewDryRunTransport(stateDir string) (*DryRunTransport, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", stateDir, err)
	}
	return &DryRunTransport{StateDir: stateDir}, nil
}

func (t *DryRunTransport) Connect(_ context.Context, fqdn string) (Connection, error) {
	return &dryRunConn{
		fqdn: fqdn,
		path: filepath.Join(t.StateDir, fqdn+".conf"),
	}, nil
}

type dryRunConn struct {
	fqdn string
	path string
}

func (c *dryRunConn) CommitCheck(_ context.Context, config string) (bool, string, error) {
	diff, err := c.diff(config)
	if err != nil {
		return false, "", err
	}
	return true, diff, nil
}

func (c *dryRunConn) Commit(_ context.Context, config, _ string, confirm ConfirmFunc) error {
	diff, err := c.diff(config)
	if err != nil {
		return err
	}

	if confirm != nil {
		if err := confirm(c.fqdn, diff); err != nil {
			return err
		}
	}

	if err := os.WriteFile(c.path, []byte(config), 0o644); err != nil {
		return fmt.Errorf("storing config for %s: %w", c.fqdn, err)
	}
	return nil
}

func (c *dryRunConn) Close() error {
	return nil
}

// diff returns a unified diff between the stored running config and the
// candidate, "" when they are identical. A device never seen before has
// an empty running config.
func (c *dryRunConn) diff(candidate string) (string, error) {
	running, err := os.ReadFile(c.path)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("reading state for %s: %w", c.fqdn, err)
	}

	if string(running) == candidate {
		return "", nil
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(running)),
		B:        difflib.SplitLines(candidate),
		FromFile: "running",
		ToFile:   "candidate",
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diffing %s: %w", c.fqdn, err)
	}
	return text, nil
}
