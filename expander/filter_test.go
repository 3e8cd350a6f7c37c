package expander

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name string
		expr string
		row  map[string]string
		want bool
	}{
		{"empty matches all", "", map[string]string{"a": "1"}, true},
		{"string equality", `env = staging`, map[string]string{"env": "staging"}, true},
		{"string inequality", `env != prod`, map[string]string{"env": "staging"}, true},
		{"quoted value", `env = "staging"`, map[string]string{"env": "staging"}, true},
		{"numeric gt", "age > 18", map[string]string{"age": "30"}, true},
		{"numeric gt false", "age > 18", map[string]string{"age": "17"}, false},
		{"numeric gte boundary", "age >= 18", map[string]string{"age": "18"}, true},
		{"numeric lte", "price <= 9.99", map[string]string{"price": "9.5"}, true},
		{"numeric equality ignores formatting", "count = 10", map[string]string{"count": "10.0"}, true},
		{"missing column", "age > 18", map[string]string{"name": "x"}, false},
		{"malformed matches all", "age >> 18", map[string]string{"age": "1"}, true},
		{"lexicographic fallback", "name > alice", map[string]string{"name": "bob"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep := CompileFilter(tt.expr, zaptest.NewLogger(t))
			assert.Equal(t, tt.want, keep(tt.row))
		})
	}
}
