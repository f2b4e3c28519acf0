// Package template renders per-role configuration templates.
package template

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/herder-tools/herder/pkg/util"
)

// Renderer loads and renders role templates from <basePath>/templates.
// Templates are named after the role: templates/<role>.tmpl. Rendering is
// strict: referencing a key missing from the data bundle is an error, so
// incomplete device data fails loudly instead of producing a broken
// configuration.
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer rooted at basePath.
func NewRenderer(basePath string) *Renderer {
	return &Renderer{dir: filepath.Join(basePath, "templates")}
}

// Render renders the template for the given role with the device's data
// bundle. Templates are re-read on every call so edits during long runs
// are picked up per device.
func (r *Renderer) Render(role string, data map[string]interface{}) (string, error) {
	name := role + ".tmpl"
	src, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", util.NewRenderError(role, "no template "+name, nil)
		}
		return "", util.NewRenderError(role, "reading template "+name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return "", util.NewRenderError(role, "syntax error in "+name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", util.NewRenderError(role, "", err)
	}
	return buf.String(), nil
}
