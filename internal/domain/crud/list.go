package crud

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	// MaxLimit caps page size when the caller configures none.
	MaxLimit = 100
)

// Pagination is a resolved page window.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// BuildPagination resolves raw page/limit parameters. Absent or non-numeric
// values take the defaults; both are clamped to at least 1 and limit to at
// most maxLimit. page is capped so the offset never overflows; such pages
// are simply empty.
func BuildPagination(page, limit string, maxLimit int) Pagination {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	p := parsePositive(page, DefaultPage)
	l := parsePositive(limit, DefaultLimit)
	if l > maxLimit {
		l = maxLimit
	}
	if maxPage := math.MaxInt/l + 1; p > maxPage {
		p = maxPage
	}
	return Pagination{Page: p, Limit: l, Offset: (p - 1) * l}
}

func parsePositive(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	return n
}

// ListRequest is a parsed list query.
type ListRequest struct {
	Pagination
	SortBy    string
	SortOrder string
	// Filters holds every non-reserved query parameter. Stores keep only the
	// ones declared as search fields.
	Filters map[string]string
}

var reservedParams = map[string]bool{"page": true, "limit": true, "sortBy": true, "sortOrder": true}

// NewListRequest parses query parameters into a ListRequest.
func NewListRequest(q url.Values, maxLimit int) ListRequest {
	req := ListRequest{
		Pagination: BuildPagination(q.Get("page"), q.Get("limit"), maxLimit),
		SortBy:     q.Get("sortBy"),
		SortOrder:  q.Get("sortOrder"),
		Filters:    make(map[string]string),
	}
	for k, vs := range q {
		if reservedParams[k] || len(vs) == 0 || vs[0] == "" {
			continue
		}
		req.Filters[k] = vs[0]
	}
	return req
}

// PageInfo is the pagination block of a list response.
type PageInfo struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// ListResult is a page of rows plus pagination info.
type ListResult struct {
	Data       []Record `json:"data"`
	Pagination PageInfo `json:"pagination"`
}

func newListResult(rows []Record, total int64, p Pagination) *ListResult {
	if rows == nil {
		rows = []Record{}
	}
	pages := int64(0)
	if p.Limit > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return &ListResult{
		Data: rows,
		Pagination: PageInfo{
			Page:  p.Page,
			Limit: p.Limit,
			Total: total,
			Pages: pages,
		},
	}
}
