package strapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query builds the bracketed REST parameters the CMS understands:
// filters[...], populate[...], pagination[...] and sort[n].
type Query struct {
	values url.Values
	sorts  int
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

// Filter adds filters[a][b][op]=value for the dotted field path.
func (q *Query) Filter(field, op string, value any) *Query {
	key := "filters" + bracket(strings.Split(field, ".")...) + bracket(op)
	q.values.Add(key, fmt.Sprint(value))
	return q
}

// Eq is shorthand for Filter(field, "$eq", value).
func (q *Query) Eq(field string, value any) *Query {
	return q.Filter(field, "$eq", value)
}

// In adds filters[field][$in][n]=value for each value.
func (q *Query) In(field string, values ...any) *Query {
	base := "filters" + bracket(strings.Split(field, ".")...) + bracket("$in")
	for i, v := range values {
		q.values.Add(base+bracket(strconv.Itoa(i)), fmt.Sprint(v))
	}
	return q
}

// Search adds a case-insensitive $containsi filter on any of the fields.
func (q *Query) Search(term string, fields ...string) *Query {
	if term == "" || len(fields) == 0 {
		return q
	}
	for i, field := range fields {
		key := "filters" + bracket("$or", strconv.Itoa(i)) + bracket(strings.Split(field, ".")...) + bracket("$containsi")
		q.values.Add(key, term)
	}
	return q
}

// Populate requests a dotted relation path, e.g.
// "orderProducts.items.parentItem" becomes
// populate[orderProducts][populate][items][populate][parentItem]=true.
func (q *Query) Populate(paths ...string) *Query {
	for _, path := range paths {
		parts := strings.Split(path, ".")
		var b strings.Builder
		b.WriteString("populate")
		for i, part := range parts {
			if i > 0 {
				b.WriteString("[populate]")
			}
			b.WriteString(bracket(part))
		}
		q.values.Set(b.String(), "true")
	}
	return q
}

// Page sets pagination[page] and pagination[pageSize]. Non-positive values
// are left to the CMS defaults.
func (q *Query) Page(page, pageSize int) *Query {
	if page > 0 {
		q.values.Set("pagination[page]", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.values.Set("pagination[pageSize]", strconv.Itoa(pageSize))
	}
	return q
}

// Sort appends sort[n]=field[:dir] entries in order.
func (q *Query) Sort(fields ...string) *Query {
	for _, field := range fields {
		if field == "" {
			continue
		}
		q.values.Set(fmt.Sprintf("sort[%d]", q.sorts), field)
		q.sorts++
	}
	return q
}

// Values returns a copy of the encoded parameters.
func (q *Query) Values() url.Values {
	out := url.Values{}
	if q == nil {
		return out
	}
	for k, v := range q.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Encode renders the query string.
func (q *Query) Encode() string {
	if q == nil {
		return ""
	}
	return q.values.Encode()
}

func bracket(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("[")
		b.WriteString(p)
		b.WriteString("]")
	}
	return b.String()
}
