package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// Source loads the full record set of a view from the backend.
type Source interface {
	Name() string
	Fetch(ctx context.Context, def ViewDefinition) ([]tablequery.Record, error)
}

// StaticSource serves fixed records per view key. Used by the CLI and tests.
type StaticSource struct {
	mu      sync.RWMutex
	records map[string][]tablequery.Record
}

// NewStaticSource creates a StaticSource seeded with records per view key.
func NewStaticSource(records map[string][]tablequery.Record) *StaticSource {
	s := &StaticSource{records: make(map[string][]tablequery.Record, len(records))}
	for k, v := range records {
		s.records[k] = v
	}
	return s
}

func (s *StaticSource) Name() string { return "static" }

// Set replaces the records of one view.
func (s *StaticSource) Set(key string, records []tablequery.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = records
}

func (s *StaticSource) Fetch(ctx context.Context, def ViewDefinition) ([]tablequery.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records[def.Info.Key]), nil
}

// DecodeRecords reads a JSON array of objects. An object wrapping the array
// under "items", "data" or "results" is also accepted. Numbers are kept as
// json.Number so integer ids survive untouched.
//
// A leading byte-order mark is dropped and UTF-16 input marked by one is
// transcoded, so files saved by spreadsheet tools decode. Invalid UTF-8 is
// replaced with U+FFFD.
func DecodeRecords(r io.Reader) ([]tablequery.Record, error) {
	body, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedData)
	}

	if body[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := decodeJSON(body, &envelope); err != nil {
			return nil, err
		}
		for _, key := range []string{"items", "data", "results"} {
			if raw, ok := envelope[key]; ok {
				body = raw
				break
			}
		}
	}

	var raw []map[string]any
	if err := decodeJSON(body, &raw); err != nil {
		return nil, err
	}
	records := make([]tablequery.Record, len(raw))
	for i, m := range raw {
		records[i] = tablequery.Record(m)
	}
	return records, nil
}

func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	return nil
}
