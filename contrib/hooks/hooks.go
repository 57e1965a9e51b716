// Package hooks provides common hook implementations for tablekit models.
//
// These hooks are optional starting points:
//   - Timestamps: maintains created and updated timestamp columns
//   - UUIDKey: assigns random UUID primary keys to new rows
//   - ReadOnly: rejects every statement that is not a select
//   - Log: logs the outcome of every statement
//
// Usage:
//
//	var Users = tablekit.NewModel[User](UserTable).WithHooks(
//	    hooks.UUIDKey[User](UserTable),
//	    hooks.Timestamps[User](UserTable, time.Now),
//	    hooks.Log[User, uuid.UUID](slog.Default()),
//	)
package hooks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
	"github.com/syssam/tablekit/schema"

	"github.com/google/uuid"
)

// ErrReadOnly is returned by the ReadOnly hook.
var ErrReadOnly = errors.New("hooks: model is read-only")

// Timestamps returns a PreBind hook maintaining the timestamp columns of t.
// Inserts and upserts set the created column unless it already holds a
// value; inserts, upserts and updates set the updated column. Columns may
// be time.Time, *time.Time or sql.NullTime fields.
func Timestamps[T, K any, PT tablekit.Record[T]](t *schema.Table[T, K], now func() time.Time) tablekit.Hook[T, K] {
	created, hasCreated := t.Timestamp(schema.Created)
	updated, hasUpdated := t.Timestamp(schema.Updated)
	return tablekit.NewHook(tablekit.PreBind, func(_ context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
		if in.Kind != tablekit.InputRow {
			return nil
		}
		row := PT(in.Row)
		ts := now()
		switch q.Op {
		case sqlgen.OpInsert, sqlgen.OpUpsert:
			if hasCreated {
				if err := setTime(row, created, ts, true); err != nil {
					return err
				}
			}
		case sqlgen.OpUpdate:
		default:
			return nil
		}
		if hasUpdated {
			return setTime(row, updated, ts, false)
		}
		return nil
	})
}

func setTime[T any, PT tablekit.Record[T]](row PT, c schema.Column[T], ts time.Time, keep bool) error {
	dst, err := row.Target(c)
	if err != nil {
		return err
	}
	switch v := dst.(type) {
	case *time.Time:
		if !keep || v.IsZero() {
			*v = ts
		}
	case **time.Time:
		if !keep || *v == nil {
			*v = &ts
		}
	case *sql.NullTime:
		if !keep || !v.Valid {
			*v = sql.NullTime{Time: ts, Valid: true}
		}
	default:
		return fmt.Errorf("hooks: timestamp column %s has unsupported type %T", c, dst)
	}
	return nil
}

// UUIDKey returns a PreBind hook assigning a random UUID to the primary key
// of inserted and upserted rows whose key is unset. The key may be a
// uuid.UUID or a string field.
func UUIDKey[T, K any, PT tablekit.Record[T]](t *schema.Table[T, K]) tablekit.Hook[T, K] {
	pk := t.PrimaryKey()
	return tablekit.NewHook(tablekit.PreBind, func(_ context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
		if in.Kind != tablekit.InputRow || (q.Op != sqlgen.OpInsert && q.Op != sqlgen.OpUpsert) {
			return nil
		}
		dst, err := PT(in.Row).Target(pk)
		if err != nil {
			return err
		}
		switch v := dst.(type) {
		case *uuid.UUID:
			if *v == uuid.Nil {
				*v = uuid.New()
			}
		case *string:
			if *v == "" {
				*v = uuid.NewString()
			}
		default:
			return fmt.Errorf("hooks: primary key %s has unsupported type %T", pk, dst)
		}
		return nil
	})
}

// ReadOnly returns a PreExec hook rejecting every statement but selects.
func ReadOnly[T, K any]() tablekit.Hook[T, K] {
	return tablekit.NewHook(tablekit.PreExec, func(_ context.Context, q *sqlgen.Query[T], _ *tablekit.Input[T, K]) error {
		if q.Op != sqlgen.OpSelect {
			return fmt.Errorf("%w: %s", ErrReadOnly, q.Op)
		}
		return nil
	})
}

// Log returns a PostExec hook logging the outcome of every statement.
// Failures are logged at warn level, except missing rows.
func Log[T, K any](l *slog.Logger) tablekit.Hook[T, K] {
	if l == nil {
		l = slog.Default()
	}
	return tablekit.NewHook(tablekit.PostExec, func(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
		out := in.Result
		if out == nil {
			return nil
		}
		attrs := []slog.Attr{
			slog.String("op", q.Op.String()),
			slog.Int64("rows", rows(out)),
		}
		level := slog.LevelDebug
		if out.Err != nil {
			attrs = append(attrs, slog.String("error", out.Err.Error()))
			if !tablekit.IsNotFound(out.Err) {
				level = slog.LevelWarn
			}
		}
		l.LogAttrs(ctx, level, "tablekit: outcome", attrs...)
		return nil
	})
}

// rows returns the number of rows an outcome affected or returned.
func rows[T any](out *tablekit.Outcome[T]) int64 {
	switch out.Kind {
	case tablekit.OutcomeExec:
		if out.Exec == nil {
			return 0
		}
		n, _ := out.Exec.RowsAffected()
		return n
	case tablekit.OutcomeOne, tablekit.OutcomeOptional:
		if out.Row == nil {
			return 0
		}
		return 1
	default:
		return int64(len(out.Rows))
	}
}
