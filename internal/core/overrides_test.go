package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

func TestApplyViewOverrides(t *testing.T) {
	Clear()
	t.Cleanup(Clear)
	Register(testView())

	yml := `
views:
  solicitudes:
    label: Mis solicitudes
    search_fields: [nombre_descriptivo]
    default_sort: {key: resultados_encontrados, direction: asc}
    page_size: 25
`
	if err := ApplyViewOverrides(strings.NewReader(yml)); err != nil {
		t.Fatalf("ApplyViewOverrides() error = %v", err)
	}

	def, _ := Get("solicitudes")
	if def.Info.Label != "Mis solicitudes" {
		t.Errorf("Label = %q", def.Info.Label)
	}
	if len(def.Info.SearchFields) != 1 || def.Info.SearchFields[0] != "nombre_descriptivo" {
		t.Errorf("SearchFields = %v", def.Info.SearchFields)
	}
	want := tablequery.SortSpec{Key: "resultados_encontrados", Direction: tablequery.Asc, Kind: tablequery.KindNumber}
	if def.Info.DefaultSort != want {
		t.Errorf("DefaultSort = %+v, want %+v", def.Info.DefaultSort, want)
	}
	if def.Info.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", def.Info.PageSize)
	}
	if def.Info.Group != "Monitoreo" {
		t.Errorf("Group = %q, unset fields must be kept", def.Info.Group)
	}
}

func TestApplyViewOverrides_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yml     string
		wantErr string
	}{
		{name: "unknown view", yml: "views:\n  nope:\n    label: x\n", wantErr: "view not found"},
		{name: "unknown column", yml: "views:\n  solicitudes:\n    search_fields: [clave]\n", wantErr: `unknown column "clave"`},
		{name: "unknown field", yml: "views:\n  solicitudes:\n    colour: red\n", wantErr: "decode"},
		{name: "negative page size", yml: "views:\n  solicitudes:\n    page_size: -1\n", wantErr: "page_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Clear()
			t.Cleanup(Clear)
			Register(testView())

			err := ApplyViewOverrides(strings.NewReader(tt.yml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ApplyViewOverrides() error = %v, want containing %q", err, tt.wantErr)
			}
			def, _ := Get("solicitudes")
			if def.Info.Label != "Solicitudes" {
				t.Error("a rejected file must not change any view")
			}
		})
	}
}

func TestLoadViewOverrides(t *testing.T) {
	Clear()
	t.Cleanup(Clear)
	Register(testView())

	if err := LoadViewOverrides(""); err != nil {
		t.Errorf("LoadViewOverrides(\"\") error = %v, want nil", err)
	}

	path := filepath.Join(t.TempDir(), "views.yaml")
	if err := os.WriteFile(path, []byte("views:\n  solicitudes:\n    label: Desde archivo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadViewOverrides(path); err != nil {
		t.Fatalf("LoadViewOverrides() error = %v", err)
	}
	if def, _ := Get("solicitudes"); def.Info.Label != "Desde archivo" {
		t.Errorf("Label = %q", def.Info.Label)
	}

	if err := LoadViewOverrides(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
