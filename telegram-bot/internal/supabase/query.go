package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const preferRepresentation = "return=representation"

// Query builds one PostgREST request. Filters apply to selects and updates.
type Query struct {
	client  *Client
	table   string
	params  url.Values
	method  string
	body    interface{}
	prefer  string
	columns string
}

func newQuery(c *Client, table string) *Query {
	return &Query{
		client: c,
		table:  table,
		params: url.Values{},
		method: http.MethodGet,
	}
}

func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

func (q *Query) Eq(column string, value interface{}) *Query {
	q.params.Add(column, "eq."+formatValue(value))
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Add("order", column+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Insert posts rows (a struct, map or slice) and returns the inserted rows.
func (q *Query) Insert(rows interface{}) *Query {
	q.method = http.MethodPost
	q.body = rows
	q.prefer = preferRepresentation
	return q
}

// Update patches every row matching the filters.
func (q *Query) Update(patch interface{}) *Query {
	q.method = http.MethodPatch
	q.body = patch
	q.prefer = preferRepresentation
	return q
}

// Execute runs the request and decodes the JSON array response into out,
// which may be nil.
func (q *Query) Execute(ctx context.Context, out interface{}) error {
	if q.columns != "" {
		q.params.Set("select", q.columns)
	}

	body, err := q.client.do(ctx, q.method, q.table, q.params.Encode(), q.body, q.prefer)
	if err != nil {
		return fmt.Errorf("%s %s: %w", q.method, q.table, err)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", q.table, err)
	}
	return nil
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
