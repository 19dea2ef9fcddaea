package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// ViewOverride adjusts a registered view without a rebuild.
//
//	views:
//	  solicitudes:
//	    label: Mis solicitudes
//	    search_fields: [nombre_descriptivo, estado]
//	    default_sort: {key: ultima_ejecucion, direction: desc}
//	    page_size: 25
type ViewOverride struct {
	Label        string   `yaml:"label"`
	Group        string   `yaml:"group"`
	Columns      []string `yaml:"columns"`
	SearchFields []string `yaml:"search_fields"`
	DefaultSort  *struct {
		Key       string `yaml:"key"`
		Direction string `yaml:"direction"`
	} `yaml:"default_sort"`
	PageSize int `yaml:"page_size"`
}

type overridesFile struct {
	Views map[string]ViewOverride `yaml:"views"`
}

// LoadViewOverrides applies the YAML overrides at path. An empty path is a no-op.
func LoadViewOverrides(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open view overrides: %w", err)
	}
	defer f.Close()

	if err := ApplyViewOverrides(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ApplyViewOverrides decodes overrides from r and applies them to the
// registry. Every override is validated before any is applied.
func ApplyViewOverrides(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file overridesFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode view overrides: %w", err)
	}

	var errs []string
	for key, o := range file.Views {
		def, ok := Get(key)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: %v", key, ErrViewNotFound))
			continue
		}
		for _, col := range slices.Concat(o.Columns, o.SearchFields, sortKey(o)) {
			if !def.HasColumn(col) {
				errs = append(errs, fmt.Sprintf("%s: unknown column %q", key, col))
			}
		}
		if o.PageSize < 0 {
			errs = append(errs, fmt.Sprintf("%s: page_size must not be negative", key))
		}
	}
	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("invalid view overrides:\n  - %s", strings.Join(errs, "\n  - "))
	}

	for key, o := range file.Views {
		update(key, func(def *ViewDefinition) {
			if o.Label != "" {
				def.Info.Label = o.Label
			}
			if o.Group != "" {
				def.Info.Group = o.Group
			}
			if len(o.Columns) > 0 {
				def.Info.Columns = o.Columns
			}
			if len(o.SearchFields) > 0 {
				def.Info.SearchFields = o.SearchFields
			}
			if o.DefaultSort != nil {
				def.Info.DefaultSort = tablequery.SortSpec{
					Key:       o.DefaultSort.Key,
					Direction: tablequery.ParseDirection(o.DefaultSort.Direction),
				}
				if f, ok := def.Field(o.DefaultSort.Key); ok {
					def.Info.DefaultSort.Kind = f.Type.Kind()
				}
			}
			if o.PageSize > 0 {
				def.Info.PageSize = o.PageSize
			}
		})
	}
	return nil
}

func sortKey(o ViewOverride) []string {
	if o.DefaultSort == nil || o.DefaultSort.Key == "" {
		return nil
	}
	return []string{o.DefaultSort.Key}
}
