package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/herder-tools/herder/pkg/cli"
	"github.com/herder-tools/herder/pkg/util"
)

// confirmState is the state of one confirmation exchange.
type confirmState int

const (
	stateStart confirmState = iota
	statePrompting
	stateConfirmed
	stateAborted
)

// maxConfirmAttempts is how many answers the operator gets before the
// commit is aborted.
const maxConfirmAttempts = 2

// Confirmer runs the interactive commit-confirmation exchange. The
// transport calls Confirm once a staged commit's diff is known; a nil
// return lets it finalize, an error makes it roll back.
//
// One Confirmer serves a whole run; the exchange itself is per device
// and carries no state across calls.
type Confirmer struct {
	In          io.Reader
	Out         io.Writer
	IsTerminal  func() bool
	reader      *bufio.Reader // wraps In once; survives across devices
	abortReason error         // last abort reason, for tests and summaries
}

// NewConfirmer returns a Confirmer attached to the process terminal.
func NewConfirmer() *Confirmer {
	return &Confirmer{
		In:  os.Stdin,
		Out: os.Stdout,
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Confirm displays the diff for fqdn and asks for a literal "yes" or
// "no". "yes" confirms; "no" aborts; after maxConfirmAttempts invalid
// answers the exchange aborts with a distinct reason. Without an
// interactive terminal it aborts immediately, before showing anything.
func (c *Confirmer) Confirm(fqdn, diff string) error {
	if !c.IsTerminal() {
		c.abortReason = util.ErrNotInteractive
		return fmt.Errorf("commit on %s: %w", fqdn, util.ErrNotInteractive)
	}

	fmt.Fprintf(c.Out, "Change for %s:\n%s\n", cli.Bold(fqdn), cli.ColorDiff(diff))

	if c.reader == nil {
		c.reader = bufio.NewReader(c.In)
	}
	state := statePrompting
	attempts := 0

	for state == statePrompting {
		fmt.Fprintf(c.Out, "Type \"yes\" to commit, \"no\" to abort [%d/%d]: ",
			attempts+1, maxConfirmAttempts)

		line, err := c.reader.ReadString('\n')
		answer := strings.TrimSpace(line)
		switch {
		case answer == "yes":
			state = stateConfirmed
		case answer == "no":
			state = stateAborted
			c.abortReason = util.ErrAbort
		default:
			attempts++
			if err != nil || attempts >= maxConfirmAttempts {
				state = stateAborted
				c.abortReason = util.ErrTooManyAttempts
			} else {
				fmt.Fprintln(c.Out, "Invalid response, type \"yes\" or \"no\"")
			}
		}
	}

	if state == stateConfirmed {
		return nil
	}
	return fmt.Errorf("commit on %s: %w", fqdn, c.abortReason)
}
