package query

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Unbounded marks a skip or limit that must not be applied. It is what a
// non-numeric page or limit parameter resolves to.
const Unbounded = -1

const (
	defaultPage  = 1
	defaultLimit = 100
)

// ExcludedFields are the control keys that never become filters.
var ExcludedFields = []string{"page", "sort", "limit", "fields"}

// operators maps the accepted comparison suffixes to SQL operators. Any other
// suffix is dropped.
var operators = map[string]string{
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
	"eq":  "=",
	"ne":  "<>",
}

const opIn = "IN"

var bracketKey = regexp.MustCompile(`^([A-Za-z0-9_]+)\[([A-Za-z]+)\]$`)

type Filter struct {
	Field  string
	Op     string
	Values []string
}

type SortField struct {
	Field string
	Desc  bool
}

type Spec struct {
	Filters []Filter
	Sort    []SortField
	Fields  []string
	Omit    []string
	Skip    int
	Limit   int
}

// Parse turns a parsed query string into a Spec. Keys listed in excluded are
// not treated as filters.
func Parse(values url.Values, excluded ...string) Spec {
	spec := Spec{}
	skip := make(map[string]bool, len(excluded))
	for _, k := range excluded {
		skip[k] = true
	}
	for key, vals := range values {
		if skip[key] || len(vals) == 0 {
			continue
		}
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			op, ok := operators[m[2]]
			if !ok {
				continue
			}
			spec.Filters = append(spec.Filters, Filter{Field: m[1], Op: op, Values: vals[len(vals)-1:]})
			continue
		}
		if strings.ContainsAny(key, "[]") {
			continue
		}
		if len(vals) > 1 {
			spec.Filters = append(spec.Filters, Filter{Field: key, Op: opIn, Values: vals})
			continue
		}
		spec.Filters = append(spec.Filters, Filter{Field: key, Op: operators["eq"], Values: vals})
	}
	sortFilters(spec.Filters)

	for _, token := range splitList(values.Get("sort")) {
		if strings.HasPrefix(token, "-") {
			spec.Sort = append(spec.Sort, SortField{Field: token[1:], Desc: true})
			continue
		}
		spec.Sort = append(spec.Sort, SortField{Field: strings.TrimPrefix(token, "+")})
	}
	for _, token := range splitList(values.Get("fields")) {
		if strings.HasPrefix(token, "-") {
			spec.Omit = append(spec.Omit, token[1:])
			continue
		}
		spec.Fields = append(spec.Fields, token)
	}
	spec.Skip, spec.Limit = pagination(values.Get("page"), values.Get("limit"))
	return spec
}

// SortBy renders the sort fields as a space separated list, descending
// fields prefixed with a dash.
func (s Spec) SortBy() string {
	tokens := make([]string, 0, len(s.Sort))
	for _, f := range s.Sort {
		if f.Desc {
			tokens = append(tokens, "-"+f.Field)
			continue
		}
		tokens = append(tokens, f.Field)
	}
	return strings.Join(tokens, " ")
}

// Select renders the projection as a space separated list.
func (s Spec) Select() string {
	tokens := make([]string, 0, len(s.Fields)+len(s.Omit))
	tokens = append(tokens, s.Fields...)
	for _, f := range s.Omit {
		tokens = append(tokens, "-"+f)
	}
	return strings.Join(tokens, " ")
}

// Where appends an equality filter, replacing any filter on the same field.
func (s *Spec) Where(field, value string) {
	filters := s.Filters[:0]
	for _, f := range s.Filters {
		if f.Field != field {
			filters = append(filters, f)
		}
	}
	s.Filters = append(filters, Filter{Field: field, Op: operators["eq"], Values: []string{value}})
}

func pagination(pageParam, limitParam string) (skip, limit int) {
	page, pageOK := defaultPage, true
	if pageParam != "" {
		page, pageOK = parseLeadingInt(pageParam)
	}
	limit, limitOK := defaultLimit, true
	if limitParam != "" {
		limit, limitOK = parseLeadingInt(limitParam)
	}
	if !limitOK {
		return Unbounded, Unbounded
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if !pageOK {
		return Unbounded, limit
	}
	if page < 1 {
		page = defaultPage
	}
	return (page - 1) * limit, limit
}

// parseLeadingInt reads an optionally signed integer prefix, ignoring
// leading whitespace and anything after the digits.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, token := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if token = strings.TrimSpace(token); token != "" {
			out = append(out, token)
		}
	}
	return out
}

func sortFilters(filters []Filter) {
	sort.SliceStable(filters, func(i, j int) bool { return filters[i].Field < filters[j].Field })
}
