package tablequery

// Query is the complete UI state of one table.
type Query struct {
	Search       string     `json:"search,omitempty"`
	SearchFields []string   `json:"searchFields,omitempty"`
	Predicates   Predicates `json:"-"`
	Sort         SortSpec   `json:"sort"`
	Page         PageSpec   `json:"page"`
}

// View is the derived result of a Query: the full filtered and sorted
// sequence plus the requested page of it.
type View struct {
	Matched []Record
	Page    Page[Record]
}

// Apply runs filter, predicates and sort without paginating.
func Apply(records []Record, q Query) []Record {
	out := FilterByText(records, q.Search, q.SearchFields)
	out = FilterByPredicates(out, q.Predicates)
	return Sort(out, q.Sort)
}

// Run applies the whole pipeline: text filter, predicates, sort, paginate.
func Run(records []Record, q Query) (View, error) {
	matched := Apply(records, q)
	page, err := Paginate(matched, q.Page)
	if err != nil {
		return View{}, err
	}
	return View{Matched: matched, Page: page}, nil
}
