package template

import (
	"errors"
	"testing"

	"github.com/herder-tools/herder/internal/testutil"
	"github.com/herder-tools/herder/pkg/util"
)

func TestRender(t *testing.T) {
	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{
		"templates/leaf.tmpl": "hostname {{.hostname}}\nmtu {{.mtu}}\n",
	})

	r := NewRenderer(base)
	got, err := r.Render("leaf", map[string]interface{}{
		"hostname": "leaf1",
		"mtu":      9100,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := "hostname leaf1\nmtu 9100\n"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderErrors(t *testing.T) {
	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{
		"templates/leaf.tmpl":   "hostname {{.hostname}}\n",
		"templates/broken.tmpl": "hostname {{.hostname\n",
	})
	r := NewRenderer(base)

	tests := []struct {
		name string
		role string
		data map[string]interface{}
	}{
		{"missing template", "spine", nil},
		{"syntax error", "broken", map[string]interface{}{"hostname": "x"}},
		{"missing key", "leaf", map[string]interface{}{"domain": "example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(tt.role, tt.data)
			if err == nil {
				t.Fatal("Render should fail")
			}
			if !errors.Is(err, util.ErrRenderFailed) {
				t.Errorf("error = %v, want ErrRenderFailed", err)
			}
		})
	}
}
