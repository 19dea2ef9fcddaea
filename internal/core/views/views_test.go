package views

import (
	"testing"

	"github.com/JonMunkholm/lexia/internal/core"
)

func TestViewsRegistered(t *testing.T) {
	for _, key := range []string{"solicitudes", "historial"} {
		def, ok := core.Get(key)
		if !ok {
			t.Fatalf("view %q not registered", key)
		}
		if def.Query == "" {
			t.Errorf("view %q has no query", key)
		}
		if def.Info.Path != key {
			t.Errorf("view %q path = %q, want %q", key, def.Info.Path, key)
		}
		for _, f := range def.Info.SearchFields {
			if !def.HasColumn(f) {
				t.Errorf("view %q search field %q is not a column", key, f)
			}
		}
		if !def.HasColumn(def.Info.DefaultSort.Key) {
			t.Errorf("view %q default sort %q is not a column", key, def.Info.DefaultSort.Key)
		}
	}
}

func TestSolicitudesSearchFields(t *testing.T) {
	def, _ := core.Get("solicitudes")
	want := []string{"nombre_descriptivo", "tipo_busqueda", "estado"}
	if len(def.Info.SearchFields) != len(want) {
		t.Fatalf("SearchFields = %v, want %v", def.Info.SearchFields, want)
	}
	for i := range want {
		if def.Info.SearchFields[i] != want[i] {
			t.Errorf("SearchFields[%d] = %q, want %q", i, def.Info.SearchFields[i], want[i])
		}
	}
}

func TestHiddenColumnsNotVisible(t *testing.T) {
	def, _ := core.Get("solicitudes")
	for _, c := range def.VisibleColumns() {
		if c == "id" || c == "activa" {
			t.Errorf("hidden column %q is visible", c)
		}
	}
}
