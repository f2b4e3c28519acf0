package transport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/herder-tools/herder/internal/testutil"
)

func TestDryRunCommitCheck(t *testing.T) {
	tr, err := NewDryRunTransport(t.TempDir())
	if err != nil {
		t.Fatalf("NewDryRunTransport: %v", err)
	}
	ctx := context.Background()

	conn, err := tr.Connect(ctx, "leaf1.example.com")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	// First contact: everything is an addition.
	ok, diff, err := conn.CommitCheck(ctx, "hostname leaf1\n")
	if err != nil {
		t.Fatalf("CommitCheck: %v", err)
	}
	if !ok {
		t.Error("CommitCheck ok = false")
	}
	if !strings.Contains(diff, "+hostname leaf1") {
		t.Errorf("diff = %q, want added line", diff)
	}
}

func TestDryRunCommitThenNoChange(t *testing.T) {
	tr, err := NewDryRunTransport(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	conn, _ := tr.Connect(ctx, "leaf1.example.com")
	defer conn.Close()

	var confirmedDiff string
	confirm := func(fqdn, diff string) error {
		if fqdn != "leaf1.example.com" {
			t.Errorf("confirm fqdn = %q", fqdn)
		}
		confirmedDiff = diff
		return nil
	}

	if err := conn.Commit(ctx, "hostname leaf1\n", "initial", confirm); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !strings.Contains(confirmedDiff, "+hostname leaf1") {
		t.Errorf("confirm saw diff %q", confirmedDiff)
	}

	// Same config again: empty diff.
	ok, diff, err := conn.CommitCheck(ctx, "hostname leaf1\n")
	if err != nil || !ok {
		t.Fatalf("CommitCheck after commit: ok=%v err=%v", ok, err)
	}
	if diff != "" {
		t.Errorf("diff after commit = %q, want empty", diff)
	}
}

func TestDryRunCommitRefused(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewDryRunTransport(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	conn, _ := tr.Connect(ctx, "leaf1.example.com")
	defer conn.Close()

	refused := errors.New("operator said no")
	err = conn.Commit(ctx, "hostname leaf1\n", "msg", func(string, string) error {
		return refused
	})
	if !errors.Is(err, refused) {
		t.Fatalf("Commit error = %v, want confirm error", err)
	}

	// Refused commit must not change stored state.
	ok, diff, err := conn.CommitCheck(ctx, "hostname leaf1\n")
	if err != nil || !ok {
		t.Fatal(err)
	}
	if diff == "" {
		t.Error("state changed despite refused confirmation")
	}
}

func TestDryRunStatePersistsAcrossConnections(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewDryRunTransport(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	conn, _ := tr.Connect(ctx, "leaf1.example.com")
	if err := conn.Commit(ctx, "hostname leaf1\n", "msg", nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	conn.Close()

	stored := testutil.ReadFile(t, dir+"/leaf1.example.com.conf")
	if stored != "hostname leaf1\n" {
		t.Errorf("stored config = %q", stored)
	}

	conn2, _ := tr.Connect(ctx, "leaf1.example.com")
	defer conn2.Close()
	_, diff, err := conn2.CommitCheck(ctx, "hostname leaf1\nmtu 9100\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(diff, "+mtu 9100") {
		t.Errorf("diff against persisted state = %q", diff)
	}
}
