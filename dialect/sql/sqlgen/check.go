package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/tablekit/dialect"
)

// Placeholders counts the distinct positional placeholders in a statement
// of the given dialect. Numbered placeholders ($1, $2, ...) are counted by
// their highest index, "?" placeholders by occurrence. Quoted literals and
// identifiers are skipped.
func Placeholders(d, sql string) int {
	var (
		n     int
		quote byte
	)
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case d == dialect.MySQL && ch == '?':
			n++
		case d != dialect.MySQL && ch == '$':
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			if j > i+1 {
				if v, err := strconv.Atoi(sql[i+1 : j]); err == nil && v > n {
					n = v
				}
				i = j - 1
			}
		}
	}
	return n
}

// Check verifies that the number of bindings of q matches the placeholders
// in its statement text.
func Check[T any](q *Query[T]) error {
	if got, want := Placeholders(q.dialect, q.sql), len(q.bindings); got != want {
		return fmt.Errorf("sqlgen: %s statement has %d placeholders and %d bindings: %s",
			q.Op, got, want, strings.ReplaceAll(q.sql, "\n", " "))
	}
	return nil
}
