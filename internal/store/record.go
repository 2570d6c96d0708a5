package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordTable is the soft-delete aware access path shared by every
// tenant-owned table. Entity stores embed it and add their own writes.
type RecordTable[T domain.TenantOwned] struct {
	db      Querier
	table   string
	columns []string
	scan    func(row pgx.Row) (T, error)
}

// baseColumns lead every select so scan funcs can read them first.
const baseColumns = "id, tenant_id, created_at, updated_at, deleted_at"

func NewRecordTable[T domain.TenantOwned](db Querier, table string, columns []string, scan func(pgx.Row) (T, error)) RecordTable[T] {
	return RecordTable[T]{db: db, table: table, columns: columns, scan: scan}
}

func (t RecordTable[T]) selectList() string {
	if len(t.columns) == 0 {
		return baseColumns
	}
	return baseColumns + ", " + strings.Join(t.columns, ", ")
}

// where renders q as a WHERE clause. Placeholders start at $start.
func where(q domain.RecordQuery, start int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.TenantID != nil {
		args = append(args, *q.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", start+len(args)-1))
	}
	if q.ActiveOnly {
		conds = append(conds, "deleted_at IS NULL")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (t RecordTable[T]) List(ctx context.Context, q domain.RecordQuery) ([]T, error) {
	clause, args := where(q, 1)
	rows, err := t.db.Query(ctx,
		`SELECT `+t.selectList()+` FROM `+t.table+clause+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, rec)
	}
	return out, mapError(rows.Err())
}

func (t RecordTable[T]) Get(ctx context.Context, id uuid.UUID, q domain.RecordQuery) (T, error) {
	clause, args := where(q, 2)
	if clause == "" {
		clause = " WHERE id = $1"
	} else {
		clause += " AND id = $1"
	}
	rec, err := t.scan(t.db.QueryRow(ctx,
		`SELECT `+t.selectList()+` FROM `+t.table+clause, append([]any{id}, args...)...))
	if err != nil {
		var zero T
		return zero, mapError(err)
	}
	return rec, nil
}

func (t RecordTable[T]) Count(ctx context.Context, q domain.RecordQuery) (int, error) {
	clause, args := where(q, 1)
	var n int
	if err := t.db.QueryRow(ctx, `SELECT count(*) FROM `+t.table+clause, args...).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// SoftDelete stamps deleted_at and touches nothing else. Repeated calls re-stamp.
func (t RecordTable[T]) SoftDelete(ctx context.Context, id, tenantID uuid.UUID) (time.Time, error) {
	var deletedAt time.Time
	err := t.db.QueryRow(ctx,
		`UPDATE `+t.table+` SET deleted_at = now() WHERE id = $1 AND tenant_id = $2 RETURNING deleted_at`,
		id, tenantID,
	).Scan(&deletedAt)
	if err != nil {
		return time.Time{}, mapError(err)
	}
	return deletedAt, nil
}

// Restore clears deleted_at. Restoring an active row succeeds without change.
func (t RecordTable[T]) Restore(ctx context.Context, id, tenantID uuid.UUID) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE `+t.table+` SET deleted_at = NULL WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the row permanently, whatever its deleted_at.
func (t RecordTable[T]) HardDelete(ctx context.Context, id, tenantID uuid.UUID) error {
	tag, err := t.db.Exec(ctx, `DELETE FROM `+t.table+` WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
