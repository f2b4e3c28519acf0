package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/herder-tools/herder/pkg/devices"
)

// Hierarchy resolves per-device data with hierarchical overrides.
//
// Under each base path it loads config/common.yaml, config/roles.yaml and
// config/sites.yaml. The override order when assembling a device's data
// bundle is common, then role, then site, then the device's own config;
// the device's fqdn, role and site are always injected on top.
// Public and private layers are merged last; a top-level key present in
// both is an error so that a public repository can never silently shadow
// a private value (or the other way around).
type Hierarchy struct {
	public  layers
	private layers
}

type layers struct {
	common map[string]interface{}
	roles  map[string]map[string]interface{}
	sites  map[string]map[string]interface{}
}

// NewHierarchy loads the hierarchical config layers from publicPath and,
// when non-empty, privatePath. Missing files yield empty layers.
func NewHierarchy(publicPath, privatePath string) (*Hierarchy, error) {
	h := &Hierarchy{}

	var err error
	if h.public, err = loadLayers(publicPath); err != nil {
		return nil, err
	}
	if privatePath != "" {
		if h.private, err = loadLayers(privatePath); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func loadLayers(basePath string) (layers, error) {
	l := layers{}

	if err := loadLayerFile(basePath, "common", &l.common); err != nil {
		return l, err
	}
	if err := loadLayerFile(basePath, "roles", &l.roles); err != nil {
		return l, err
	}
	if err := loadLayerFile(basePath, "sites", &l.sites); err != nil {
		return l, err
	}
	return l, nil
}

func loadLayerFile(basePath, name string, out interface{}) error {
	path := filepath.Join(basePath, "config", name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Get assembles the data bundle for a device with all overrides resolved.
func (h *Hierarchy) Get(d devices.Device) (map[string]interface{}, error) {
	public := merge(
		h.public.common,
		h.public.roles[d.Role],
		h.public.sites[d.Site],
		d.Config,
		map[string]interface{}{"fqdn": d.FQDN, "role": d.Role, "site": d.Site},
	)
	private := merge(
		h.private.common,
		h.private.roles[d.Role],
		h.private.sites[d.Site],
		d.Private,
	)

	var clash []string
	for key := range private {
		if _, ok := public[key]; ok {
			clash = append(clash, key)
		}
	}
	if len(clash) > 0 {
		sort.Strings(clash)
		return nil, fmt.Errorf("configuration key(s) found in both public and private config: %s",
			strings.Join(clash, ", "))
	}

	for key, value := range private {
		public[key] = value
	}
	return public, nil
}

// merge shallow-merges maps left to right; later maps win on top-level keys.
func merge(maps ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, m := range maps {
		for key, value := range m {
			out[key] = value
		}
	}
	return out
}
