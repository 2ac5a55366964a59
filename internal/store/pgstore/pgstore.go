// Package pgstore is the Postgres core.Store built on pgx.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/triage"
)

// DB is the subset of pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DB
}

var _ core.Store = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db}
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close(context.Context) error { return nil }

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// where accumulates numbered conditions. Every "?" in a condition is bound to
// the same argument.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is an ILIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// addFilter pushes the four filter predicates down. trustColumn is trust for
// reports and confidence for incidents.
func (w *where) addFilter(f triage.Filter, now time.Time, trustColumn string, verifiedOnly bool) {
	if f.EventType != "" && f.EventType != triage.AllEventTypes {
		w.add("event_type = ?", f.EventType)
	}
	if f.MinTrust > 0 {
		w.add(trustColumn+" >= ?", f.MinTrust)
	}
	if f.Bounded() {
		w.add("observed_at >= ?", now.Add(-time.Duration(f.TimeWindow*float64(time.Hour))))
	}
	if verifiedOnly && f.VerifiedOnly {
		w.add("status = ?", "verified")
	}
}

// addCursor restricts to rows older than the cursor row in (created_at, id) order.
func (w *where) addCursor(table, cursor string) {
	if cursor == "" {
		return
	}
	w.add(fmt.Sprintf("(created_at, id) < (SELECT created_at, id FROM %s WHERE id = ?)", table), cursor)
}

func (w *where) addLimit(limit int) string {
	if limit <= 0 {
		return ""
	}
	w.args = append(w.args, limit+1)
	return fmt.Sprintf(" LIMIT $%d", len(w.args))
}
