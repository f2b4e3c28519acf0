// Package devices loads the device inventory and resolves selection
// queries against it.
//
// The inventory is a devices.yaml file keyed by FQDN, with an optional
// private overlay of the same shape. The private file extends the public
// one: devices present only in the private file are added, and for
// devices present in both the private per-device config is kept separate
// so it never leaks into generated public output.
package devices

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/herder-tools/herder/pkg/util"
)

// Device identifies one managed network element.
type Device struct {
	FQDN    string
	Role    string
	Site    string
	Config  map[string]interface{}
	Private map[string]interface{}
}

// deviceEntry is the on-disk shape of one devices.yaml value.
type deviceEntry struct {
	Role   string                 `yaml:"role"`
	Site   string                 `yaml:"site"`
	Config map[string]interface{} `yaml:"config"`
}

// Directory is the collection of all known devices, accessible by FQDN
// and resolvable by selection query.
type Directory struct {
	byFQDN map[string]Device
	byRole map[string][]string
	bySite map[string][]string
	order  []string // FQDNs sorted, the stable snapshot order
}

// Load reads the public devices.yaml under publicPath and, when
// privatePath is non-empty, the private overlay of the same name.
// A missing devices.yaml yields an empty directory, not an error.
func Load(publicPath, privatePath string) (*Directory, error) {
	public, err := loadFile(filepath.Join(publicPath, "config", "devices.yaml"))
	if err != nil {
		return nil, err
	}

	var private map[string]deviceEntry
	if privatePath != "" {
		private, err = loadFile(filepath.Join(privatePath, "config", "devices.yaml"))
		if err != nil {
			return nil, err
		}
	}

	d := &Directory{
		byFQDN: make(map[string]Device),
		byRole: make(map[string][]string),
		bySite: make(map[string][]string),
	}

	for fqdn, entry := range public {
		d.byFQDN[fqdn] = Device{
			FQDN:   fqdn,
			Role:   entry.Role,
			Site:   entry.Site,
			Config: entry.Config,
		}
	}
	for fqdn, entry := range private {
		dev, ok := d.byFQDN[fqdn]
		if !ok {
			dev = Device{FQDN: fqdn}
		}
		if entry.Role != "" {
			dev.Role = entry.Role
		}
		if entry.Site != "" {
			dev.Site = entry.Site
		}
		dev.Private = entry.Config
		d.byFQDN[fqdn] = dev
	}

	for fqdn, dev := range d.byFQDN {
		d.order = append(d.order, fqdn)
		d.byRole[dev.Role] = append(d.byRole[dev.Role], fqdn)
		d.bySite[dev.Site] = append(d.bySite[dev.Site], fqdn)
	}
	sort.Strings(d.order)
	for _, m := range []map[string][]string{d.byRole, d.bySite} {
		for _, fqdns := range m {
			sort.Strings(fqdns)
		}
	}

	return d, nil
}

func loadFile(path string) (map[string]deviceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	entries := make(map[string]deviceEntry)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// Len returns the number of known devices.
func (d *Directory) Len() int {
	return len(d.order)
}

// Get returns the device with the given FQDN.
func (d *Directory) Get(fqdn string) (Device, bool) {
	dev, ok := d.byFQDN[fqdn]
	return dev, ok
}

// Select resolves a selection query into an ordered set of devices.
//
// Query grammar:
//
//	role:<name>   all devices with the given role
//	site:<name>   all devices in the given site
//	<pattern>     FQDN glob (filepath.Match syntax, exact names included)
//
// A syntactically invalid query returns a SelectionError. A valid query
// matching no device returns an empty slice, which is not an error.
func (d *Directory) Select(query string) ([]Device, error) {
	if query == "" {
		return nil, util.NewSelectionError(query, "empty query")
	}

	fqdns, err := d.resolve(query)
	if err != nil {
		return nil, err
	}

	devs := make([]Device, 0, len(fqdns))
	for _, fqdn := range fqdns {
		devs = append(devs, d.byFQDN[fqdn])
	}
	return devs, nil
}

func (d *Directory) resolve(query string) ([]string, error) {
	if field, value, found := cutQualifier(query); found {
		if value == "" {
			return nil, util.NewSelectionError(query, "missing value after '"+field+":'")
		}
		switch field {
		case "role":
			return d.byRole[value], nil
		case "site":
			return d.bySite[value], nil
		default:
			return nil, util.NewSelectionError(query, "unknown field '"+field+"'")
		}
	}

	// FQDN glob; filepath.Match also covers the exact-name case.
	if _, err := filepath.Match(query, ""); err != nil {
		return nil, util.NewSelectionError(query, "malformed pattern")
	}
	var fqdns []string
	for _, fqdn := range d.order {
		if matched, _ := filepath.Match(query, fqdn); matched {
			fqdns = append(fqdns, fqdn)
		}
	}
	return fqdns, nil
}

// cutQualifier splits "field:value" queries. Returns found=false for
// plain FQDN patterns.
func cutQualifier(query string) (field, value string, found bool) {
	for i := 0; i < len(query); i++ {
		if query[i] == ':' {
			return query[:i], query[i+1:], true
		}
	}
	return "", "", false
}
