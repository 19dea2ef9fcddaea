package tablequery

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func ids(records []Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r["id"]
	}
	return out
}

func sampleRecords() []Record {
	return []Record{
		{"id": 1, "name": "Ana García", "estado": "activa"},
		{"id": 2, "name": "Juan Pérez", "estado": "pausada"},
		{"id": 3, "name": "ana gomez", "estado": "activa"},
	}
}

// ============================================================================
// Record Tests
// ============================================================================

func TestRecord_Value(t *testing.T) {
	rec := Record{
		"alias": "Proceso 1",
		"user": map[string]any{
			"profile": map[string]any{"name": "Ana"},
		},
		"meta":  Record{"count": 3},
		"plain": "x",
		"empty": nil,
	}

	tests := []struct {
		path string
		want any
	}{
		{"alias", "Proceso 1"},
		{"user.profile.name", "Ana"},
		{"meta.count", 3},
		{"user.missing.name", nil},
		{"plain.deeper", nil},
		{"missing", nil},
		{"empty.child", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := rec.Value(tt.path); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Value(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	var nilRec Record
	if got := nilRec.Value("a.b"); got != nil {
		t.Errorf("nil record Value = %v, want nil", got)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "hola", "hola"},
		{"int", 42, "42"},
		{"float", 3.5, "3.5"},
		{"whole float", float64(10), "10"},
		{"json number", json.Number("12.50"), "12.50"},
		{"bool", true, "true"},
		{"date only", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{"timestamp", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), "2024-01-02T15:04:05Z"},
		{"zero time", time.Time{}, ""},
		{"nested", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// FilterByText Tests
// ============================================================================

func TestFilterByText(t *testing.T) {
	records := []Record{
		{"id": 1, "alias": "Demanda García", "despacho": map[string]any{"nombre": "Juzgado 1 Civil"}},
		{"id": 2, "alias": "Pérez y Cía", "despacho": map[string]any{"nombre": "Tribunal Superior"}},
		{"id": 3, "alias": nil, "despacho": map[string]any{"nombre": "JUZGADO laboral"}},
		{"id": 4, "alias": 12345},
	}
	fields := []string{"alias", "despacho.nombre"}

	tests := []struct {
		name  string
		query string
		want  []any
	}{
		{"accent insensitive", "garcia", []any{1}},
		{"nested field", "juzgado", []any{1, 3}},
		{"query with accents", "PÉREZ", []any{2}},
		{"no match", "xyz", []any{}},
		{"non-string values never match", "123", []any{}},
		{"collapsed spaces", "tribunal    superior", []any{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterByText(records, tt.query, fields))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterByText(%q) ids = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilterByText_EmptyQueryPassesThrough(t *testing.T) {
	records := sampleRecords()
	for _, q := range []string{"", "   ", "\t"} {
		got := FilterByText(records, q, []string{"name"})
		if !reflect.DeepEqual(ids(got), ids(records)) {
			t.Errorf("FilterByText(%q) = %v, want input unchanged", q, ids(got))
		}
	}
}

func TestFilterByText_Subset(t *testing.T) {
	records := sampleRecords()
	for _, q := range []string{"a", "ana", "pérez", "zzz", "activa"} {
		got := FilterByText(records, q, []string{"name", "estado"})
		if len(got) > len(records) {
			t.Errorf("FilterByText(%q) returned %d records from %d", q, len(got), len(records))
		}
	}
}

func TestFilterByText_DoesNotMutateInput(t *testing.T) {
	records := sampleRecords()
	before := ids(records)
	_ = FilterByText(records, "juan", []string{"name"})
	if !reflect.DeepEqual(ids(records), before) {
		t.Errorf("input mutated: %v, want %v", ids(records), before)
	}
}

// ============================================================================
// Predicate Tests
// ============================================================================

func TestFilterByPredicates(t *testing.T) {
	records := []Record{
		{"id": 1, "estado": "activa", "fecha": "2024-01-10", "total": 5},
		{"id": 2, "estado": "pausada", "fecha": "2024-02-10", "total": 15},
		{"id": 3, "estado": "Activa", "fecha": "2024-03-10", "total": 25},
		{"id": 4, "estado": "error", "fecha": "sin fecha", "total": nil},
	}
	lo, hi := 10.0, 30.0

	tests := []struct {
		name       string
		predicates Predicates
		want       []any
	}{
		{"nil map", nil, []any{1, 2, 3, 4}},
		{"nil entries", Predicates{"estado": nil}, []any{1, 2, 3, 4}},
		{"one of", Predicates{"estado": OneOf("estado", "activa")}, []any{1, 3}},
		{
			"date range",
			Predicates{"fecha": DateRange("fecha",
				time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))},
			[]any{2, 3},
		},
		{"number range", Predicates{"total": NumberRange("total", &lo, &hi)}, []any{2, 3}},
		{
			"combined with AND",
			Predicates{
				"estado": OneOf("estado", "activa", "pausada"),
				"total":  NumberRange("total", &lo, nil),
			},
			[]any{2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterByPredicates(records, tt.predicates))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterByPredicates ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicateBuilders_EmptyBoundsAreNoOps(t *testing.T) {
	if DateRange("f", time.Time{}, time.Time{}) != nil {
		t.Error("DateRange with zero bounds should be nil")
	}
	if OneOf("f") != nil {
		t.Error("OneOf without values should be nil")
	}
	if NumberRange("f", nil, nil) != nil {
		t.Error("NumberRange without bounds should be nil")
	}
}

func TestColumnFilter_Predicate(t *testing.T) {
	records := []Record{
		{"id": 1, "despacho": "Juzgado Civil", "total": 5, "fecha": "2024-01-10", "activa": true},
		{"id": 2, "despacho": "Tribunal Superior", "total": 15, "fecha": "2024-02-10", "activa": false},
		{"id": 3, "despacho": "juzgado laboral", "total": 25, "fecha": "2024-03-10", "activa": true},
	}

	tests := []struct {
		name   string
		filter ColumnFilter
		want   []any
	}{
		{"contains", ColumnFilter{Column: "despacho", Operator: OpContains, Value: "JUZGADO"}, []any{1, 3}},
		{"starts", ColumnFilter{Column: "despacho", Operator: OpStartsWith, Value: "trib"}, []any{2}},
		{"ends", ColumnFilter{Column: "despacho", Operator: OpEndsWith, Value: "laboral"}, []any{3}},
		{"eq text", ColumnFilter{Column: "despacho", Operator: OpEquals, Value: "juzgado civil"}, []any{1}},
		{"eq number", ColumnFilter{Column: "total", Operator: OpEquals, Value: "15", Kind: KindNumber}, []any{2}},
		{"gte number", ColumnFilter{Column: "total", Operator: OpGreaterEq, Value: "15", Kind: KindNumber}, []any{2, 3}},
		{"lt number", ColumnFilter{Column: "total", Operator: OpLess, Value: "15", Kind: KindNumber}, []any{1}},
		{"gt date", ColumnFilter{Column: "fecha", Operator: OpGreater, Value: "2024-02-10", Kind: KindDate}, []any{3}},
		{"lte date", ColumnFilter{Column: "fecha", Operator: OpLessEq, Value: "2024-02-10", Kind: KindDate}, []any{1, 2}},
		{"in", ColumnFilter{Column: "despacho", Operator: OpIn, Value: "Juzgado Civil, Tribunal Superior"}, []any{1, 2}},
		{"between", ColumnFilter{Column: "total", Operator: OpBetween, Value: "10,20", Kind: KindNumber}, []any{2}},
		{"eq bool", ColumnFilter{Column: "activa", Operator: OpEquals, Value: "sí", Kind: KindBool}, []any{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := tt.filter.Predicate()
			if err != nil {
				t.Fatalf("Predicate() error: %v", err)
			}
			got := ids(FilterByPredicates(records, Predicates{"f": pred}))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s ids = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestDateBounds_DateOnlyCoversWholeDay(t *testing.T) {
	records := []Record{
		{"id": 1, "fecha": "2024-01-31T00:00:00Z"},
		{"id": 2, "fecha": "2024-01-31T18:30:00Z"},
		{"id": 3, "fecha": "2024-02-01T00:00:00Z"},
	}
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		pred func() (Predicate, error)
		want []any
	}{
		{
			"date range to midnight",
			func() (Predicate, error) { return DateRange("fecha", time.Time{}, jan31), nil },
			[]any{1, 2},
		},
		{
			"date range to exact instant",
			func() (Predicate, error) {
				return DateRange("fecha", time.Time{}, jan31.Add(12*time.Hour)), nil
			},
			[]any{1},
		},
		{
			"lte date only",
			ColumnFilter{Column: "fecha", Operator: OpLessEq, Value: "2024-01-31", Kind: KindDate}.Predicate,
			[]any{1, 2},
		},
		{
			"gt date only",
			ColumnFilter{Column: "fecha", Operator: OpGreater, Value: "2024-01-31", Kind: KindDate}.Predicate,
			[]any{3},
		},
		{
			"between date only",
			ColumnFilter{Column: "fecha", Operator: OpBetween, Value: "2024-01-31,2024-01-31", Kind: KindDate}.Predicate,
			[]any{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := tt.pred()
			if err != nil {
				t.Fatalf("predicate error: %v", err)
			}
			got := ids(FilterByPredicates(records, Predicates{"fecha": pred}))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColumnFilter_PredicateErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter ColumnFilter
	}{
		{"unknown operator", ColumnFilter{Column: "a", Operator: "like", Value: "x"}},
		{"bad number", ColumnFilter{Column: "a", Operator: OpGreater, Value: "abc", Kind: KindNumber}},
		{"bad date", ColumnFilter{Column: "a", Operator: OpLess, Value: "ayer", Kind: KindDate}},
		{"between one value", ColumnFilter{Column: "a", Operator: OpBetween, Value: "1", Kind: KindNumber}},
		{"empty in", ColumnFilter{Column: "a", Operator: OpIn, Value: " , "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.filter.Predicate()
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Predicate() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestParseOperator(t *testing.T) {
	if op, ok := ParseOperator(" GTE "); !ok || op != OpGreaterEq {
		t.Errorf("ParseOperator(GTE) = %q, %v", op, ok)
	}
	if _, ok := ParseOperator("like"); ok {
		t.Error("ParseOperator(like) should fail")
	}
}

// ============================================================================
// Sort Tests
// ============================================================================

func TestSort_NoKeyKeepsOrder(t *testing.T) {
	records := sampleRecords()
	got := Sort(records, SortSpec{})
	if !reflect.DeepEqual(ids(got), []any{1, 2, 3}) {
		t.Errorf("Sort without key = %v, want input order", ids(got))
	}
}

func TestSort_Text(t *testing.T) {
	records := []Record{
		{"id": 1, "name": "Bogotá"},
		{"id": 2, "name": "Ávila"},
		{"id": 3, "name": "ana"},
		{"id": 4, "name": "Solicitud 10"},
		{"id": 5, "name": "Solicitud 2"},
		{"id": 6, "name": "Ñandú"},
		{"id": 7, "name": "nube"},
		{"id": 8, "name": "oso"},
	}

	got := ids(Sort(records, SortSpec{Key: "name", Direction: Asc, Kind: KindText}))
	want := []any{3, 2, 1, 7, 6, 8, 5, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sort text asc = %v, want %v", got, want)
	}
}

func TestSort_Numbers(t *testing.T) {
	records := []Record{
		{"id": 1, "n": 10},
		{"id": 2, "n": 2.5},
		{"id": 3, "n": json.Number("33")},
		{"id": 4, "n": int64(-1)},
	}

	got := ids(Sort(records, SortSpec{Key: "n"}))
	if want := []any{4, 2, 1, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sort auto numbers = %v, want %v", got, want)
	}

	got = ids(Sort(records, SortSpec{Key: "n", Direction: Desc, Kind: KindNumber}))
	if want := []any{3, 1, 2, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sort numbers desc = %v, want %v", got, want)
	}
}

func TestSort_DatesWithMalformedAsEpoch(t *testing.T) {
	records := []Record{
		{"id": 1, "fecha": "2024-03-01T10:00:00Z"},
		{"id": 2, "fecha": "no es fecha"},
		{"id": 3, "fecha": time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"id": 4, "fecha": "1969-07-20"},
	}

	got := ids(Sort(records, SortSpec{Key: "fecha", Kind: KindDate}))
	if want := []any{4, 2, 3, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sort dates asc = %v, want %v", got, want)
	}
}

func TestSort_AutoDetectsDateStrings(t *testing.T) {
	records := []Record{
		{"id": 1, "fecha": "2024-03-01 08:00:00"},
		{"id": 2, "fecha": "2023-12-31T23:59:59"},
	}
	got := ids(Sort(records, SortSpec{Key: "fecha"}))
	if want := []any{2, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sort auto dates = %v, want %v", got, want)
	}
}

func TestSort_AutoDetectedDatesTreatMalformedAsEpoch(t *testing.T) {
	records := []Record{
		{"id": 1, "fecha": "2024-01-01T10:00:00Z"},
		{"id": 2, "fecha": "N/A"},
		{"id": 3, "fecha": "2023-01-01T10:00:00Z"},
		{"id": 4, "fecha": nil},
	}

	tests := []struct {
		dir  Direction
		want []any
	}{
		{Asc, []any{2, 3, 1, 4}},
		{Desc, []any{1, 3, 2, 4}},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			auto := ids(Sort(records, SortSpec{Key: "fecha", Direction: tt.dir}))
			if !reflect.DeepEqual(auto, tt.want) {
				t.Errorf("Sort auto %s = %v, want %v", tt.dir, auto, tt.want)
			}
			date := ids(Sort(records, SortSpec{Key: "fecha", Direction: tt.dir, Kind: KindDate}))
			if !reflect.DeepEqual(auto, date) {
				t.Errorf("auto %v differs from explicit date kind %v", auto, date)
			}
		})
	}
}

func TestColumnKind(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   Kind
	}{
		{"numbers", []any{1, json.Number("2.5"), nil}, KindNumber},
		{"booleans", []any{true, false}, KindBool},
		{"dates", []any{"2024-01-01", time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)}, KindDate},
		{"dates with malformed", []any{"2024-01-01", "N/A", "2023-01-01"}, KindDate},
		{"mostly text", []any{"Ana", "Juan", "2024-01-01"}, KindAuto},
		{"mixed numbers and text", []any{1, "dos"}, KindAuto},
		{"all nil", []any{nil, nil}, KindAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]Record, len(tt.values))
			for i, v := range tt.values {
				records[i] = Record{"v": v}
			}
			if got := ColumnKind(records, "v"); got != tt.want {
				t.Errorf("ColumnKind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSort_Stable(t *testing.T) {
	records := []Record{
		{"id": 1, "estado": "activa"},
		{"id": 2, "estado": "pausada"},
		{"id": 3, "estado": "activa"},
		{"id": 4, "estado": "Activa"},
		{"id": 5, "estado": "pausada"},
	}

	asc := ids(Sort(records, SortSpec{Key: "estado", Direction: Asc}))
	if want := []any{1, 3, 4, 2, 5}; !reflect.DeepEqual(asc, want) {
		t.Errorf("Sort asc = %v, want %v", asc, want)
	}

	desc := ids(Sort(records, SortSpec{Key: "estado", Direction: Desc}))
	if want := []any{2, 5, 1, 3, 4}; !reflect.DeepEqual(desc, want) {
		t.Errorf("Sort desc = %v, want %v", desc, want)
	}
}

func TestSort_NullsLastBothDirections(t *testing.T) {
	records := []Record{
		{"id": 1, "n": nil},
		{"id": 2, "n": 5},
		{"id": 3},
		{"id": 4, "n": 1},
	}

	for _, dir := range []Direction{Asc, Desc} {
		got := ids(Sort(records, SortSpec{Key: "n", Direction: dir}))
		if got[2] != 1 || got[3] != 3 {
			t.Errorf("Sort %s = %v, want nil records 1 and 3 last", dir, got)
		}
	}
}

func TestSort_ReverseOfAscDiffersOnlyByTiesAndNulls(t *testing.T) {
	records := []Record{
		{"id": 1, "n": 2},
		{"id": 2, "n": 1},
		{"id": 3, "n": 3},
	}
	asc := Sort(records, SortSpec{Key: "n", Direction: Asc})
	desc := Sort(records, SortSpec{Key: "n", Direction: Desc})
	for i := range asc {
		if asc[i]["id"] != desc[len(desc)-1-i]["id"] {
			t.Fatalf("without ties reverse(asc) should equal desc: asc=%v desc=%v", ids(asc), ids(desc))
		}
	}

	records = append(records, Record{"id": 4, "n": nil}, Record{"id": 5, "n": 1})
	asc = Sort(records, SortSpec{Key: "n", Direction: Asc})
	desc = Sort(records, SortSpec{Key: "n", Direction: Desc})
	if reflect.DeepEqual(ids(reverse(asc)), ids(desc)) {
		t.Errorf("expected nulls-last and stable ties to break symmetry: asc=%v desc=%v", ids(asc), ids(desc))
	}
	if want := []any{3, 1, 2, 5, 4}; !reflect.DeepEqual(ids(desc), want) {
		t.Errorf("desc = %v, want %v", ids(desc), want)
	}
}

func reverse(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	records := []Record{{"id": 2, "n": 2}, {"id": 1, "n": 1}}
	_ = Sort(records, SortSpec{Key: "n"})
	if !reflect.DeepEqual(ids(records), []any{2, 1}) {
		t.Errorf("input mutated: %v", ids(records))
	}
}

func TestNextSortSpec(t *testing.T) {
	tests := []struct {
		name    string
		current SortSpec
		clicked string
		want    SortSpec
	}{
		{"new key starts asc", SortSpec{}, "name", SortSpec{Key: "name", Direction: Asc}},
		{"same key flips to desc", SortSpec{Key: "name", Direction: Asc}, "name", SortSpec{Key: "name", Direction: Desc}},
		{"same key flips back", SortSpec{Key: "name", Direction: Desc}, "name", SortSpec{Key: "name", Direction: Asc}},
		{"keeps kind on flip", SortSpec{Key: "f", Direction: Asc, Kind: KindDate}, "f", SortSpec{Key: "f", Direction: Desc, Kind: KindDate}},
		{"other key resets", SortSpec{Key: "name", Direction: Desc}, "estado", SortSpec{Key: "estado", Direction: Asc}},
		{"empty click clears", SortSpec{Key: "name", Direction: Desc}, "", SortSpec{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextSortSpec(tt.current, tt.clicked); got != tt.want {
				t.Errorf("NextSortSpec(%+v, %q) = %+v, want %+v", tt.current, tt.clicked, got, tt.want)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	if ParseDirection("DESC") != Desc || ParseDirection("asc") != Asc || ParseDirection("bogus") != Asc {
		t.Error("ParseDirection mismatch")
	}
}

// ============================================================================
// Paginate Tests
// ============================================================================

func makeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		spec      PageSpec
		wantItems []int
		wantPages int
	}{
		{"empty input still one page", 0, PageSpec{Page: 1, PageSize: 10}, []int{}, 1},
		{"first page", 25, PageSpec{Page: 1, PageSize: 10}, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 3},
		{"last partial page", 25, PageSpec{Page: 3, PageSize: 10}, []int{20, 21, 22, 23, 24}, 3},
		{"exact multiple", 20, PageSpec{Page: 2, PageSize: 10}, []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, 2},
		{"beyond last page", 25, PageSpec{Page: 4, PageSize: 10}, []int{}, 3},
		{"page zero", 25, PageSpec{Page: 0, PageSize: 10}, []int{}, 3},
		{"negative page", 25, PageSpec{Page: -2, PageSize: 10}, []int{}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Paginate(makeInts(tt.n), tt.spec)
			if err != nil {
				t.Fatalf("Paginate error: %v", err)
			}
			if !reflect.DeepEqual(got.Items, tt.wantItems) {
				t.Errorf("Items = %v, want %v", got.Items, tt.wantItems)
			}
			if got.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", got.TotalPages, tt.wantPages)
			}
			if got.TotalItems != tt.n {
				t.Errorf("TotalItems = %d, want %d", got.TotalItems, tt.n)
			}
		})
	}
}

func TestPaginate_InvalidPageSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Paginate(makeInts(5), PageSpec{Page: 1, PageSize: size})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Paginate(pageSize=%d) error = %v, want ErrInvalidArgument", size, err)
		}
	}
}

func TestPaginate_Coverage(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 57} {
		for _, size := range []int{1, 3, 10} {
			items := makeInts(n)
			first, _ := Paginate(items, PageSpec{Page: 1, PageSize: size})

			var all []int
			for p := 1; p <= first.TotalPages; p++ {
				page, err := Paginate(items, PageSpec{Page: p, PageSize: size})
				if err != nil {
					t.Fatalf("Paginate error: %v", err)
				}
				all = append(all, page.Items...)
			}
			if len(all) != n {
				t.Fatalf("n=%d size=%d: pages cover %d items", n, size, len(all))
			}
			for i, v := range all {
				if v != i {
					t.Fatalf("n=%d size=%d: item %d = %d", n, size, i, v)
				}
			}
		}
	}
}

func TestPaginate_PageIsolation(t *testing.T) {
	items := makeInts(6)
	page, _ := Paginate(items, PageSpec{Page: 1, PageSize: 3})
	page.Items = append(page.Items, 99)
	if items[3] != 3 {
		t.Errorf("appending to a page overwrote the source: items[3] = %d", items[3])
	}
}

func TestPage_Helpers(t *testing.T) {
	page, _ := Paginate(makeInts(25), PageSpec{Page: 3, PageSize: 10})
	if page.StartItem() != 21 || page.EndItem() != 25 {
		t.Errorf("StartItem/EndItem = %d/%d, want 21/25", page.StartItem(), page.EndItem())
	}
	if !page.HasPrevious() || page.HasNext() {
		t.Errorf("HasPrevious/HasNext = %v/%v, want true/false", page.HasPrevious(), page.HasNext())
	}

	empty, _ := Paginate(makeInts(0), PageSpec{Page: 1, PageSize: 10})
	if empty.StartItem() != 0 || empty.EndItem() != 0 {
		t.Errorf("empty StartItem/EndItem = %d/%d, want 0/0", empty.StartItem(), empty.EndItem())
	}
}

// ============================================================================
// CSV Export Tests
// ============================================================================

func TestExportCSV_RoundTrip(t *testing.T) {
	records := []Record{
		{"alias": `Demanda "urgente", civil`, "despacho": "Línea 1\nLínea 2", "total": 42},
		{"alias": "Simple", "despacho": nil, "total": 3.5},
	}
	fields := []string{"alias", "despacho", "total"}

	out := ExportCSV(records, fields)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("csv parse error: %v\n%s", err, out)
	}

	want := [][]string{
		{"alias", "despacho", "total"},
		{`Demanda "urgente", civil`, "Línea 1\nLínea 2", "42"},
		{"Simple", "", "3.5"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("round trip = %q, want %q", rows, want)
	}
}

func TestExportCSV_Format(t *testing.T) {
	records := []Record{{"b": `say "hi"`, "a": nil}}

	got := ExportCSV(records, nil)
	want := "\"a\",\"b\"\n\"\",\"say \"\"hi\"\"\"\n"
	if got != want {
		t.Errorf("ExportCSV = %q, want %q", got, want)
	}
}

func TestExportCSV_Empty(t *testing.T) {
	if got := ExportCSV(nil, []string{"a"}); got != "" {
		t.Errorf("ExportCSV(nil) = %q, want empty", got)
	}
	if got := ExportCSV([]Record{}, nil); got != "" {
		t.Errorf("ExportCSV(empty) = %q, want empty", got)
	}
	if got := ExportCSV([]Record{{}, {"a": 1}}, nil); got != "" {
		t.Errorf("ExportCSV(no columns) = %q, want empty", got)
	}
}

func TestExportCSV_NestedFields(t *testing.T) {
	records := []Record{{"user": map[string]any{"name": "Ana"}}}
	got := ExportCSV(records, []string{"user.name", "user.missing"})
	if want := "\"user.name\",\"user.missing\"\n\"Ana\",\"\"\n"; got != want {
		t.Errorf("ExportCSV nested = %q, want %q", got, want)
	}
}

// ============================================================================
// Pipeline Tests
// ============================================================================

func TestRun_EndToEnd(t *testing.T) {
	q := Query{
		Search:       "ana",
		SearchFields: []string{"name"},
		Sort:         SortSpec{Key: "name", Direction: Asc},
		Page:         PageSpec{Page: 1, PageSize: 1},
	}

	view, err := Run(sampleRecords(), q)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	var names []any
	for _, r := range view.Matched {
		names = append(names, r["name"])
	}
	if want := []any{"Ana García", "ana gomez"}; !reflect.DeepEqual(names, want) {
		t.Errorf("matched names = %v, want %v", names, want)
	}
	if got := ids(view.Page.Items); !reflect.DeepEqual(got, []any{1}) {
		t.Errorf("page items = %v, want [1]", got)
	}
	if view.Page.TotalItems != 2 || view.Page.TotalPages != 2 {
		t.Errorf("totals = %d/%d, want 2/2", view.Page.TotalItems, view.Page.TotalPages)
	}
}

func TestRun_InvalidPageSize(t *testing.T) {
	_, err := Run(sampleRecords(), Query{Page: PageSpec{Page: 1}})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Run error = %v, want ErrInvalidArgument", err)
	}
}
