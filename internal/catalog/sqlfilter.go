package catalog

import (
	"strings"

	"github.com/sells-group/tradecheck/internal/hscode"
)

// placeholder returns the bind marker for the next argument and records it.
type placeholder func(arg any) string

// renderFilter translates a filter tree into a SQL boolean expression over
// column. Both Postgres and SQLite accept LIKE ... ESCAPE.
func renderFilter(f hscode.Filter, column string, bind placeholder) string {
	switch f := f.(type) {
	case hscode.StartsWith:
		return column + " LIKE " + bind(escapeLike(string(f.Prefix))+"%") + ` ESCAPE '\'`
	case hscode.EqualTo:
		return column + " = " + bind(string(f.Value))
	case hscode.Or:
		if len(f.Terms) == 0 {
			return "1 = 0"
		}
		parts := make([]string, len(f.Terms))
		for i, t := range f.Terms {
			parts[i] = renderFilter(t, column, bind)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	default:
		return "1 = 0"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
