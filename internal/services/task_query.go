package services

import (
	"net/url"
	"strconv"
	"strings"
)

// TaskQuery narrows and orders a task listing. The zero value lists every
// task of the owner in creation order.
type TaskQuery struct {
	Completed *bool
	SortBy    string // API field name, empty for creation order
	SortDesc  bool
	Limit     int // 0 means no limit
	Skip      int
}

// sortColumns maps sortable API fields to their columns.
var sortColumns = map[string]string{
	"description": "description",
	"completed":   "completed",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// ParseTaskQuery reads completed, sortBy, limit and skip from a query string.
// Malformed values are dropped rather than rejected: an unparsable limit or
// skip means "none" and an unknown sort field means the default order.
func ParseTaskQuery(values url.Values) TaskQuery {
	var q TaskQuery

	if v := values.Get("completed"); v != "" {
		completed := v == "true"
		q.Completed = &completed
	}

	if v := values.Get("sortBy"); v != "" {
		field, dir, _ := strings.Cut(v, ":")
		if _, ok := sortColumns[field]; ok {
			q.SortBy = field
			q.SortDesc = dir == "desc"
		}
	}

	q.Limit = nonNegativeInt(values.Get("limit"))
	q.Skip = nonNegativeInt(values.Get("skip"))
	return q
}

func nonNegativeInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
