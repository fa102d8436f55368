package openstates

// Bill is one search result item. The upstream schema is inconsistent
// across jurisdictions — any key may be absent, null, empty, or of an
// unexpected shape — so bills are kept as raw mappings and read through
// the tolerant accessors below.
type Bill map[string]any

// SearchResponse is the body of GET /bills.
type SearchResponse struct {
	Results    []Bill     `json:"results"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the result window of a search response.
type Pagination struct {
	PerPage    int `json:"per_page"`
	Page       int `json:"page"`
	MaxPage    int `json:"max_page"`
	TotalItems int `json:"total_items"`
}

// Str returns the string value at key, or "" when the key is absent,
// null, or not a string.
func (b Bill) Str(key string) string {
	if b == nil {
		return ""
	}
	s, _ := b[key].(string)
	return s
}

// Map returns the nested mapping at key, reporting whether the value is
// actually a mapping.
func (b Bill) Map(key string) (map[string]any, bool) {
	if b == nil {
		return nil, false
	}
	m, ok := b[key].(map[string]any)
	return m, ok
}

// List returns the entries at key that are themselves mappings. Non-list
// values and non-mapping entries are dropped rather than reported.
func (b Bill) List(key string) []map[string]any {
	if b == nil {
		return nil
	}
	raw, ok := b[key].([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// mapStr reads a string field from a nested mapping entry.
func mapStr(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Actions returns the bill's action history in upstream order.
func (b Bill) Actions() []Action {
	entries := b.List("actions")
	actions := make([]Action, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, Action{
			Description: mapStr(e, "description"),
			Date:        mapStr(e, "date"),
		})
	}
	return actions
}

// Action is a dated history entry. Dates are opaque upstream strings and
// are only ever compared lexicographically.
type Action struct {
	Description string
	Date        string
}

// Abstracts returns the abstract texts in upstream order.
func (b Bill) Abstracts() []string {
	entries := b.List("abstracts")
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, mapStr(e, "abstract"))
	}
	return texts
}

// SponsorNames returns sponsor names in upstream order, skipping
// entries without a name.
func (b Bill) SponsorNames() []string {
	entries := b.List("sponsorships")
	var names []string
	for _, e := range entries {
		if name := mapStr(e, "name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FirstDocumentURL returns the first link URL of the first document, or
// "" when no document carries a link.
func (b Bill) FirstDocumentURL() string {
	for _, doc := range b.List("documents") {
		links, ok := doc["links"].([]any)
		if !ok {
			continue
		}
		for _, l := range links {
			if lm, ok := l.(map[string]any); ok {
				if u := mapStr(lm, "url"); u != "" {
					return u
				}
			}
		}
	}
	return ""
}
