package expander

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// RowFilter decides whether an example row is kept.
type RowFilter func(row map[string]string) bool

var filterExprRe = regexp.MustCompile(`^\s*([A-Za-z0-9_.-]+)\s*(=|!=|>=|<=|>|<)\s*(.+?)\s*$`)

// CompileFilter compiles a "column <op> value" expression into a row
// predicate. Supported ops: =, !=, >, <, >=, <=. An empty expression matches
// everything; a malformed expression degrades to always-true with a warning
// and never raises.
func CompileFilter(expr string, log *zap.Logger) RowFilter {
	if strings.TrimSpace(expr) == "" {
		return func(map[string]string) bool { return true }
	}

	m := filterExprRe.FindStringSubmatch(expr)
	if m == nil {
		log.Warn("malformed filter expression, matching all rows", zap.String("filter", expr))
		return func(map[string]string) bool { return true }
	}

	column, op, value := m[1], m[2], strings.Trim(m[3], `"'`)
	return func(row map[string]string) bool {
		actual, ok := row[column]
		if !ok {
			return false
		}
		return compare(actual, op, value)
	}
}

// compare applies the operator, numerically when both operands parse as
// numbers, lexicographically otherwise.
func compare(actual, op, expected string) bool {
	an, aerr := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	en, eerr := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	numeric := aerr == nil && eerr == nil

	switch op {
	case "=":
		if numeric {
			return an == en
		}
		return actual == expected
	case "!=":
		if numeric {
			return an != en
		}
		return actual != expected
	case ">":
		if numeric {
			return an > en
		}
		return actual > expected
	case "<":
		if numeric {
			return an < en
		}
		return actual < expected
	case ">=":
		if numeric {
			return an >= en
		}
		return actual >= expected
	case "<=":
		if numeric {
			return an <= en
		}
		return actual <= expected
	}
	return false
}
