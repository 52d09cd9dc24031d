package views

import (
	"slices"
	"strings"
)

type SortKey struct {
	Column  string
	Reverse bool
}

// ParseSortKey reads a column name with an optional leading "-" reverse marker.
func ParseSortKey(s string) SortKey {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		return SortKey{Column: rest, Reverse: true}
	}
	return SortKey{Column: s}
}

func (k SortKey) String() string {
	if k.Reverse {
		return "-" + k.Column
	}
	return k.Column
}

// Sort orders rows ascending by col, keeping input order among equal keys.
// A reversed sort is the exact mirror of the ascending one.
func Sort[R any](rows []R, col Column[R], reverse bool) {
	slices.SortStableFunc(rows, func(a, b R) int {
		return col.sortValue(a).Compare(col.sortValue(b))
	})
	if reverse {
		slices.Reverse(rows)
	}
}

// Limit keeps the first n rows. n <= 0 means unlimited.
func Limit[R any](rows []R, n int) []R {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}
