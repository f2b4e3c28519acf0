package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/herder-tools/herder/internal/testutil"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"config.yaml": `
base_paths:
  public: /srv/herder/public
  private: /srv/herder/private
output_dir: /tmp/out
transport:
  driver: ssh
  username: automation
  ssh_key: /etc/herder/id_ed25519
  timeout: 10
netbox:
  url: https://netbox.example.com
  token: abc123
cache:
  redis_addr: 127.0.0.1:6379
  ttl: 120
`,
	})

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BasePaths.Public != "/srv/herder/public" {
		t.Errorf("Public = %q", cfg.BasePaths.Public)
	}
	if cfg.BasePaths.Private != "/srv/herder/private" {
		t.Errorf("Private = %q", cfg.BasePaths.Private)
	}
	if cfg.Transport.Username != "automation" {
		t.Errorf("Username = %q", cfg.Transport.Username)
	}
	if got := cfg.Transport.Timeout(); got != 10*time.Second {
		t.Errorf("Timeout() = %v, want 10s", got)
	}
	if cfg.Netbox == nil || cfg.Netbox.Token != "abc123" {
		t.Errorf("Netbox = %+v", cfg.Netbox)
	}
	if cfg.Cache == nil || cfg.Cache.TTL() != 2*time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if cfg.Netbox != nil {
		t.Error("missing file should yield zero-value config")
	}
	if got := cfg.Transport.Timeout(); got != 30*time.Second {
		t.Errorf("default Timeout() = %v, want 30s", got)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"config.yaml": "]: bad"})

	if _, err := Load(filepath.Join(dir, "config.yaml")); err == nil {
		t.Error("Load of invalid YAML should fail")
	}
}
