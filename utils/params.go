package utils

import (
	"net/http"
	"strconv"
	"strings"
)

type QueryOptions struct {
	Page     int
	Limit    int
	Category string
	Search   string
}

// ParseQueryOptions reads page, limit, category and search. Limit 0 means no
// limit.
func ParseQueryOptions(r *http.Request) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 0 {
		limit = 0
	}

	return QueryOptions{
		Page:     page,
		Limit:    limit,
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("search")),
	}
}

func ContainsIgnoreCase(str, substr string) bool {
	return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
}
