package postgres

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func ident(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return pq.QuoteIdentifier(name), nil
}

func buildSelect(table domain.Table, q ports.Query, limit int) (string, []any, error) {
	tbl, err := ident(string(table))
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT row_to_json(t) FROM ")
	sb.WriteString(tbl)
	sb.WriteString(" AS t")

	where, args, err := buildWhere(q.Filters, 1)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	if q.OrderBy != "" {
		col, err := ident(q.OrderBy)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" ORDER BY t.")
		sb.WriteString(col)
		if q.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}
	if limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(limit))
	}
	return sb.String(), args, nil
}

// buildWhere compares every column as text so filters behave the same for
// uuid, enum and numeric columns. Placeholders start at $first.
func buildWhere(filters []ports.Filter, first int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for i, f := range filters {
		col, err := ident(f.Column)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, fmt.Sprintf("t.%s::text = $%d", col, first+i))
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func buildInsert(table domain.Table, cols []string) (string, error) {
	tbl, err := ident(string(table))
	if err != nil {
		return "", err
	}
	quoted, err := quoteAll(cols)
	if err != nil {
		return "", err
	}
	list := strings.Join(quoted, ", ")
	return fmt.Sprintf(
		"INSERT INTO %s AS t (%s) SELECT %s FROM json_populate_record(NULL::%s, $1::json) RETURNING row_to_json(t)",
		tbl, list, list, tbl,
	), nil
}

func buildUpdate(table domain.Table, cols []string) (string, error) {
	tbl, err := ident(string(table))
	if err != nil {
		return "", err
	}
	quoted, err := quoteAll(cols)
	if err != nil {
		return "", err
	}
	sets := make([]string, len(quoted))
	for i, c := range quoted {
		sets[i] = fmt.Sprintf("%s = p.%s", c, c)
	}
	return fmt.Sprintf(
		"UPDATE %s AS t SET %s FROM json_populate_record(NULL::%s, $1::json) AS p WHERE t.\"id\"::text = $2 RETURNING row_to_json(t)",
		tbl, strings.Join(sets, ", "), tbl,
	), nil
}

func buildDelete(table domain.Table) (string, error) {
	tbl, err := ident(string(table))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE \"id\"::text = $1", tbl), nil
}

func quoteAll(cols []string) ([]string, error) {
	out := make([]string, len(cols))
	for i, c := range cols {
		q, err := ident(c)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// encode marshals v and returns the JSON with its top-level keys sorted. The
// keys are the columns written.
func encode(v any) ([]byte, []string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, nil, fmt.Errorf("record must encode as a JSON object: %w", err)
	}
	cols := make([]string, 0, len(fields))
	for k := range fields {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return b, cols, nil
}
