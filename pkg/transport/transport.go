// Package transport connects to network devices and exposes the
// commit-check and commit operations the execution engine drives.
package transport

import "context"

// ConfirmFunc is called by a Connection once a staged commit's diff is
// known. Returning nil lets the transport finalize the commit; returning
// an error discards the staged change and the error is reported as the
// commit's failure.
type ConfirmFunc func(fqdn, diff string) error

// Transport opens scoped connections to devices.
type Transport interface {
	Connect(ctx context.Context, fqdn string) (Connection, error)
}

// Connection is a scoped session with one device. It must be closed on
// every exit path; Close is safe to call after a failed operation.
type Connection interface {
	// CommitCheck stages config on the device without making it
	// permanent and reports whether the check passed and the resulting
	// diff ("" means no change).
	CommitCheck(ctx context.Context, config string) (bool, string, error)

	// Commit stages config, obtains the diff, asks confirm for
	// permission and finalizes the commit with the given message.
	// A nil confirm skips confirmation.
	Commit(ctx context.Context, config, message string, confirm ConfirmFunc) error

	Close() error
}
