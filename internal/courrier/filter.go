package courrier

import (
	"sort"
	"strings"
	"time"
)

// Filter narrows the register listing. Zero fields match everything; "all" is
// accepted for Type and Status the way the dashboard sends it.
type Filter struct {
	Search    string
	Type      string
	Status    string
	DateStart string
	DateEnd   string
}

func (f Filter) wants(v string) bool {
	return v != "" && v != "all"
}

// Check rejects date bounds that are not YYYY-MM-DD calendar days. Match
// compares bounds lexically against dateArrive.
func (f Filter) Check() error {
	ve := &ValidationError{}
	for _, b := range []struct{ field, v string }{{"dateStart", f.DateStart}, {"dateEnd", f.DateEnd}} {
		if b.v == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, b.v); err != nil {
			ve.add(b.field, "expected a date in YYYY-MM-DD form, got %q", b.v)
		}
	}
	return ve.err()
}

// Match reports whether d passes the filter. Date bounds apply to dateArrive
// and are inclusive.
func (f Filter) Match(d *Document) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(d.Subject), strings.ToLower(f.Search)) {
		return false
	}
	if f.wants(f.Type) && string(d.Type) != f.Type {
		return false
	}
	if f.wants(f.Status) && string(d.Status) != f.Status {
		return false
	}
	if f.DateStart != "" && d.DateArrive < f.DateStart {
		return false
	}
	if f.DateEnd != "" && d.DateArrive > f.DateEnd {
		return false
	}
	return true
}

// Apply filters docs and orders the result by num.
func (f Filter) Apply(docs []*Document) []*Document {
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	SortByNum(out)
	return out
}

func SortByNum(docs []*Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Num < docs[j].Num })
}

// Summarize counts docs for the dashboard cards.
func Summarize(docs []*Document) Stats {
	s := Stats{ByType: map[Type]int{}, ByStatus: map[Status]int{}}
	for _, d := range docs {
		s.Total++
		s.ByType[d.Type]++
		s.ByStatus[d.Status]++
	}
	return s
}
