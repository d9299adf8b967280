package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// QueryBuilder builds PostgREST queries.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	params  url.Values
	orders  []string
	limit   int
	single  bool
}

func (q *QueryBuilder) filter(column, op string, value any) *QueryBuilder {
	if q.params == nil {
		q.params = url.Values{}
	}
	q.params.Add(column, fmt.Sprintf("%s.%v", op, value))
	return q
}

// Select specifies columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.filter(column, "eq", value)
}

// Neq adds a not-equal filter.
func (q *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	return q.filter(column, "neq", value)
}

// Gt adds a greater-than filter.
func (q *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	return q.filter(column, "gt", value)
}

// Lt adds a less-than filter.
func (q *QueryBuilder) Lt(column string, value any) *QueryBuilder {
	return q.filter(column, "lt", value)
}

// ILike adds a case-insensitive LIKE filter. Use * as the wildcard.
func (q *QueryBuilder) ILike(column, pattern string) *QueryBuilder {
	return q.filter(column, "ilike", pattern)
}

// In adds an IN filter.
func (q *QueryBuilder) In(column string, values []any) *QueryBuilder {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return q.filter(column, "in", "("+strings.Join(parts, ",")+")")
}

// Or adds a disjunction of raw PostgREST conditions, e.g.
// "email.ilike.*bob*,full_name.ilike.*bob*".
func (q *QueryBuilder) Or(conditions string) *QueryBuilder {
	if q.params == nil {
		q.params = url.Values{}
	}
	q.params.Add("or", "("+conditions+")")
	return q
}

// And adds a conjunction of raw PostgREST conditions. It is needed when more
// than one Or group applies, e.g. "or(a.eq.1,b.eq.2),or(c.eq.3,d.eq.4)".
func (q *QueryBuilder) And(conditions string) *QueryBuilder {
	if q.params == nil {
		q.params = url.Values{}
	}
	q.params.Add("and", "("+conditions+")")
	return q
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Single expects exactly one row. PostgREST answers PGRST116 otherwise.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

func (q *QueryBuilder) url(withQuery bool) string {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)
	params := url.Values{}
	for k, vs := range q.params {
		params[k] = append([]string(nil), vs...)
	}
	if withQuery {
		if q.columns != "" {
			params.Set("select", q.columns)
		}
		if len(q.orders) > 0 {
			params.Set("order", strings.Join(q.orders, ","))
		}
		if q.limit > 0 {
			params.Set("limit", strconv.Itoa(q.limit))
		}
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

// Execute executes a SELECT query.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.url(true), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	q.client.setHeaders(req)
	return q.client.do(req)
}

// Into executes a SELECT query and decodes the result into v.
func (q *QueryBuilder) Into(ctx context.Context, v any) error {
	resp, err := q.Execute(ctx)
	if err != nil {
		return err
	}
	return resp.JSON(v)
}

// ExecuteInsert executes an INSERT and returns the inserted rows.
func (q *QueryBuilder) ExecuteInsert(ctx context.Context, data any) (*Response, error) {
	return q.write(ctx, http.MethodPost, data, "return=representation", "")
}

// ExecuteUpsert inserts or merges rows on the onConflict columns.
func (q *QueryBuilder) ExecuteUpsert(ctx context.Context, data any, onConflict string) (*Response, error) {
	return q.write(ctx, http.MethodPost, data, "resolution=merge-duplicates,return=representation", onConflict)
}

// ExecuteUpdate executes an UPDATE on the rows matching the filters.
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, data any) (*Response, error) {
	return q.write(ctx, http.MethodPatch, data, "return=representation", "")
}

// ExecuteDelete executes a DELETE on the rows matching the filters.
func (q *QueryBuilder) ExecuteDelete(ctx context.Context) (*Response, error) {
	return q.write(ctx, http.MethodDelete, nil, "return=representation", "")
}

func (q *QueryBuilder) write(ctx context.Context, method string, data any, prefer, onConflict string) (*Response, error) {
	reqURL := q.url(false)
	if onConflict != "" {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL += sep + "on_conflict=" + url.QueryEscape(onConflict)
	}

	var body *bytes.Reader
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal data: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, reqURL, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, reqURL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.client.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Prefer", prefer)
	return q.client.do(req)
}

// SanitizeTerm strips characters that carry meaning inside PostgREST
// logical filters so user input can be embedded in Or conditions.
func SanitizeTerm(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '"', '\\', '*', '%':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// ContainsPattern builds an ilike value matching term anywhere in a column.
// term must already be sanitized. Underscores are escaped so they match
// literally; the value is then double quoted because PostgREST only
// unescapes backslashes inside quotes.
func ContainsPattern(term string) string {
	if !strings.Contains(term, "_") {
		return "*" + term + "*"
	}
	return `"*` + strings.ReplaceAll(term, "_", `\\_`) + `*"`
}
