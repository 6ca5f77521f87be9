// Package utils holds small helpers shared across layers. Nothing in here
// knows about reports, zones, or HTTP.
package utils

import "strconv"

// AtoiDefault parses s as an int, falling back to def when s is empty or not
// a valid integer. Query-parameter parsing never needs to distinguish the two
// failure cases.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// TotalPages returns the page count for total items at pageSize per page,
// rounding up. pageSize must be positive.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
