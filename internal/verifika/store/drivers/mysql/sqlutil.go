package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// where accumulates AND-ed conditions and their bound arguments. User input
// only ever travels in args.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) like(search string, columns ...string) {
	search = strings.TrimSpace(search)
	if search == "" {
		return
	}
	pattern := "%" + escapeLike(search) + "%"
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + " LIKE ?"
		w.args = append(w.args, pattern)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// distinctIDs drops repeated ids, keeping first-seen order. HAVING clauses
// compare against len of the result.
func distinctIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func pageArgs(args []any, p domain.Page) []any {
	return append(append([]any{}, args...), p.Limit, p.Offset())
}

func count(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// countGrouped runs a "SELECT key, COUNT(*) ... GROUP BY key" query.
func countGrouped(ctx context.Context, q querier, query string, args ...any) (map[string]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var key sql.NullString
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		k := key.String
		if !key.Valid {
			k = "sin_definir"
		}
		out[k] = n
	}
	return out, rows.Err()
}

// stats assembles a domain.Stats from a total query and named group queries.
func stats(ctx context.Context, q querier, total string, groups map[string]string) (domain.Stats, error) {
	n, err := count(ctx, q, total)
	if err != nil {
		return domain.Stats{}, err
	}
	out := domain.Stats{Total: n, Breakdown: make(map[string]map[string]int64, len(groups))}
	for name, query := range groups {
		g, err := countGrouped(ctx, q, query)
		if err != nil {
			return domain.Stats{}, err
		}
		out.Breakdown[name] = g
	}
	return out, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullDate(p *domain.Date) any {
	if p == nil || p.IsZero() {
		return nil
	}
	return p.String()
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

func datePtr(d domain.Date) *domain.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

// rawJSON copies a scanned JSON column; the driver may reuse its buffer.
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(append([]byte(nil), b...))
}
