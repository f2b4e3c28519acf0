package devices

import (
	"errors"
	"testing"

	"github.com/herder-tools/herder/internal/testutil"
	"github.com/herder-tools/herder/pkg/util"
)

const publicDevices = `
leaf1.ny.example.com:
  role: leaf
  site: ny
  config:
    mgmt_ip: 10.0.0.1
leaf2.ny.example.com:
  role: leaf
  site: ny
spine1.la.example.com:
  role: spine
  site: la
`

const privateDevices = `
leaf1.ny.example.com:
  config:
    bgp_password: hunter2
oob1.ny.example.com:
  role: oob
  site: ny
`

func loadTestDirectory(t *testing.T) *Directory {
	t.Helper()

	public := t.TempDir()
	private := t.TempDir()
	testutil.WriteTree(t, public, map[string]string{"config/devices.yaml": publicDevices})
	testutil.WriteTree(t, private, map[string]string{"config/devices.yaml": privateDevices})

	d, err := Load(public, private)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return d
}

func TestLoad(t *testing.T) {
	d := loadTestDirectory(t)

	if d.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", d.Len())
	}

	dev, ok := d.Get("leaf1.ny.example.com")
	if !ok {
		t.Fatal("leaf1 not found")
	}
	if dev.Role != "leaf" || dev.Site != "ny" {
		t.Errorf("leaf1 = role %q site %q, want leaf/ny", dev.Role, dev.Site)
	}
	if dev.Config["mgmt_ip"] != "10.0.0.1" {
		t.Errorf("leaf1 public config lost: %v", dev.Config)
	}
	if dev.Private["bgp_password"] != "hunter2" {
		t.Errorf("leaf1 private config not merged: %v", dev.Private)
	}

	// Device only present in the private overlay is added.
	oob, ok := d.Get("oob1.ny.example.com")
	if !ok {
		t.Fatal("private-only device not added")
	}
	if oob.Role != "oob" {
		t.Errorf("oob1 role = %q, want oob", oob.Role)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	d, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load with missing devices.yaml: %v", err)
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0", d.Len())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	public := t.TempDir()
	testutil.WriteTree(t, public, map[string]string{"config/devices.yaml": "]: not yaml"})

	if _, err := Load(public, ""); err == nil {
		t.Error("Load with invalid YAML should fail")
	}
}

func TestSelect(t *testing.T) {
	d := loadTestDirectory(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"exact fqdn", "spine1.la.example.com", []string{"spine1.la.example.com"}},
		{"glob", "leaf*", []string{"leaf1.ny.example.com", "leaf2.ny.example.com"}},
		{"glob no match", "core*", nil},
		{"by role", "role:leaf", []string{"leaf1.ny.example.com", "leaf2.ny.example.com"}},
		{"by role no match", "role:core", nil},
		{"by site", "site:la", []string{"spine1.la.example.com"}},
		{"match all", "*", []string{
			"leaf1.ny.example.com", "leaf2.ny.example.com",
			"oob1.ny.example.com", "spine1.la.example.com",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devs, err := d.Select(tt.query)
			if err != nil {
				t.Fatalf("Select(%q): %v", tt.query, err)
			}
			if len(devs) != len(tt.want) {
				t.Fatalf("Select(%q) = %d devices, want %d", tt.query, len(devs), len(tt.want))
			}
			for i, dev := range devs {
				if dev.FQDN != tt.want[i] {
					t.Errorf("Select(%q)[%d] = %q, want %q", tt.query, i, dev.FQDN, tt.want[i])
				}
			}
		})
	}
}

func TestSelectStableOrder(t *testing.T) {
	d := loadTestDirectory(t)

	first, err := d.Select("role:leaf")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := d.Select("role:leaf")
		if err != nil {
			t.Fatal(err)
		}
		for j := range first {
			if again[j].FQDN != first[j].FQDN {
				t.Fatalf("selection order not stable on iteration %d", i)
			}
		}
	}
}

func TestSelectInvalidQuery(t *testing.T) {
	d := loadTestDirectory(t)

	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"unknown field", "rack:a1"},
		{"bare colon", ":"},
		{"missing value", "role:"},
		{"malformed pattern", "leaf[1-.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Select(tt.query)
			if err == nil {
				t.Fatalf("Select(%q) should fail", tt.query)
			}
			if !errors.Is(err, util.ErrSelection) {
				t.Errorf("Select(%q) error = %v, want ErrSelection", tt.query, err)
			}
		})
	}
}
