package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
		wantErr bool
	}{
		{name: "plain array", body: `[{"id": 1}, {"id": 2}]`, wantLen: 2},
		{name: "items envelope", body: `{"items": [{"id": 1}], "total": 1}`, wantLen: 1},
		{name: "data envelope", body: `{"data": []}`, wantLen: 0},
		{name: "results envelope", body: ` {"results": [{"a": null}]} `, wantLen: 1},
		{name: "empty body", body: "   ", wantErr: true},
		{name: "not json", body: "<html>", wantErr: true},
		{name: "object without array", body: `{"detail": "Not authenticated"}`, wantErr: true},
		{name: "array of scalars", body: `[1, 2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRecords(strings.NewReader(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedData) {
					t.Errorf("DecodeRecords() error = %v, want ErrMalformedData", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeRecords() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("DecodeRecords() len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestDecodeRecords_KeepsNumbers(t *testing.T) {
	got, err := DecodeRecords(strings.NewReader(`[{"id": 9007199254740993}]`))
	if err != nil {
		t.Fatalf("DecodeRecords() error = %v", err)
	}
	n, ok := got[0]["id"].(json.Number)
	if !ok || n.String() != "9007199254740993" {
		t.Errorf("id = %#v, want exact json.Number", got[0]["id"])
	}
}

func TestDecodeRecords_ByteOrderMarks(t *testing.T) {
	utf16le := []byte{0xFF, 0xFE}
	for _, r := range `[{"alias": "Peña"}]` {
		utf16le = append(utf16le, byte(r), byte(r>>8))
	}

	tests := []struct {
		name string
		body []byte
		want string
	}{
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, `[{"alias": "Peña"}]`...), "Peña"},
		{"utf-16le bom", utf16le, "Peña"},
		{"invalid utf-8 replaced", []byte("[{\"alias\": \"Pe\xF1a\"}]"), "Pe\uFFFDa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRecords(bytes.NewReader(tt.body))
			if err != nil {
				t.Fatalf("DecodeRecords() error = %v", err)
			}
			if len(got) != 1 || got[0]["alias"] != tt.want {
				t.Errorf("records = %v, want alias %q", got, tt.want)
			}
		})
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(map[string][]tablequery.Record{
		"solicitudes": {{"id": "1"}},
	})
	def := ViewDefinition{Info: ViewInfo{Key: "solicitudes"}}

	got, err := src.Fetch(context.Background(), def)
	if err != nil || len(got) != 1 {
		t.Fatalf("Fetch() = %v, %v", got, err)
	}

	src.Set("solicitudes", []tablequery.Record{{"id": "1"}, {"id": "2"}})
	got, _ = src.Fetch(context.Background(), def)
	if len(got) != 2 {
		t.Errorf("Fetch() after Set len = %d, want 2", len(got))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx, def); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() with cancelled context error = %v", err)
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": "a", "estado": "activa"}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", "tok", 5*time.Second)
	def := ViewDefinition{Info: ViewInfo{Key: "solicitudes", Path: "solicitudes"}}

	got, err := src.Fetch(context.Background(), def)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotPath != "/api/v1/solicitudes/" {
		t.Errorf("path = %q, want /api/v1/solicitudes/", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(got) != 1 || got[0]["estado"] != "activa" {
		t.Errorf("records = %v", got)
	}
}

func TestHTTPSource_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/caido/":
			http.Error(w, "boom", http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "", time.Second)

	_, err := src.Fetch(context.Background(), ViewDefinition{Info: ViewInfo{Key: "caido", Path: "caido"}})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("bad status error = %v, want ErrSourceUnavailable", err)
	}

	_, err = src.Fetch(context.Background(), ViewDefinition{Info: ViewInfo{Key: "roto", Path: "roto"}})
	if !errors.Is(err, ErrMalformedData) {
		t.Errorf("bad body error = %v, want ErrMalformedData", err)
	}
}

type failingQuerier struct{ err error }

func (q failingQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, q.err
}

func TestPostgresSource_Errors(t *testing.T) {
	src := NewPostgresSource(failingQuerier{err: errors.New("dial tcp: connection refused")})

	_, err := src.Fetch(context.Background(), ViewDefinition{Info: ViewInfo{Key: "sin_sql"}})
	if err == nil || MapError(err).Code != "TBL002" {
		t.Errorf("view without query error = %v, want TBL002", err)
	}

	_, err = src.Fetch(context.Background(), ViewDefinition{Info: ViewInfo{Key: "solicitudes"}, Query: "SELECT 1"})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("query error = %v, want ErrSourceUnavailable", err)
	}
}
