package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/herder-tools/herder/pkg/util"
)

// SSHConfig holds the settings for the SSH transport.
type SSHConfig struct {
	Username string
	KeyPath  string
	Port     int           // defaults to 22
	Timeout  time.Duration // connect timeout
	// ConfirmMinutes is the automatic-rollback window for confirmed
	// commits. The device reverts the change if the commit is not
	// finalized within this window.
	ConfirmMinutes int
	// HostKeyCallback defaults to known_hosts-less acceptance for lab
	// use; production deployments should set a verifying callback.
	HostKeyCallback ssh.HostKeyCallback
}

// SSHTransport connects to devices over SSH and drives their on-box
// management applet (cfgd). The applet reads the candidate configuration
// from stdin and exposes load-check, load-confirmed, commit-confirm and
// rollback subcommands; non-zero exit from load-check means the
// commit-check failed.
type SSHTransport struct {
	config SSHConfig
	signer ssh.Signer
}

// NewSSHTransport reads and parses the private key and returns a
// transport ready to connect.
func NewSSHTransport(cfg SSHConfig) (*SSHTransport, error) {
	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH key %s: %w", cfg.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parsing SSH key %s: %w", cfg.KeyPath, err)
	}

	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ConfirmMinutes == 0 {
		cfg.ConfirmMinutes = 2
	}
	if cfg.HostKeyCallback == nil {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return &SSHTransport{config: cfg, signer: signer}, nil
}

// Connect dials the device and returns a scoped connection.
func (t *SSHTransport) Connect(ctx context.Context, fqdn string) (Connection, error) {
	clientConfig := &ssh.ClientConfig{
		User:            t.config.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(t.signer)},
		HostKeyCallback: t.config.HostKeyCallback,
		Timeout:         t.config.Timeout,
	}

	addr := net.JoinHostPort(fqdn, strconv.Itoa(t.config.Port))
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w (%v)", addr, util.ErrTransportFailed, err)
	}

	return &sshConn{fqdn: fqdn, client: client, confirmMinutes: t.config.ConfirmMinutes}, nil
}

type sshConn struct {
	fqdn           string
	client         *ssh.Client
	confirmMinutes int
}

// CommitCheck stages the candidate and reports the device's verdict and
// diff. A non-zero exit from load-check is a failed check, not a
// transport error.
func (c *sshConn) CommitCheck(ctx context.Context, config string) (bool, string, error) {
	out, err := c.run(ctx, "cfgd load-check --diff", config)
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return false, out, nil
		}
		return false, "", fmt.Errorf("commit-check on %s: %w (%v)", c.fqdn, util.ErrTransportFailed, err)
	}
	return true, out, nil
}

// Commit stages the candidate with an automatic-rollback window, asks
// confirm for permission once the diff is known, and finalizes. Any
// failure or refused confirmation leaves the device rolled back.
func (c *sshConn) Commit(ctx context.Context, config, message string, confirm ConfirmFunc) error {
	cmd := fmt.Sprintf("cfgd load-confirmed --minutes %d --message %s",
		c.confirmMinutes, strconv.Quote(message))
	diff, err := c.run(ctx, cmd, config)
	if err != nil {
		c.rollback(ctx)
		return fmt.Errorf("staging commit on %s: %w (%v)", c.fqdn, util.ErrTransportFailed, err)
	}

	if confirm != nil {
		if err := confirm(c.fqdn, diff); err != nil {
			c.rollback(ctx)
			return err
		}
	}

	if _, err := c.run(ctx, "cfgd commit-confirm", ""); err != nil {
		return fmt.Errorf("finalizing commit on %s: %w (%v)", c.fqdn, util.ErrTransportFailed, err)
	}
	return nil
}

// rollback is best effort; the confirmed-commit window reverts the
// change anyway if this fails.
func (c *sshConn) rollback(ctx context.Context) {
	if _, err := c.run(ctx, "cfgd rollback", ""); err != nil {
		util.WithDevice(c.fqdn).Warnf("rollback failed: %v", err)
	}
}

func (c *sshConn) Close() error {
	return c.client.Close()
}

// run executes one applet command in a fresh session, feeding stdin when
// non-empty. The session is torn down if ctx is cancelled mid-command.
func (c *sshConn) run(ctx context.Context, cmd, stdin string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	if stdin != "" {
		session.Stdin = strings.NewReader(stdin)
	}

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		session.Close()
		<-done
		return "", ctx.Err()
	case r := <-done:
		return string(r.out), r.err
	}
}
