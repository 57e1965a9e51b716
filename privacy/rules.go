package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
	"github.com/syssam/tablekit/schema"
)

// Viewer represents the authenticated user making a request.
// Applications implement it with their own user types.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant, or "" when not applicable.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of Viewer.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string { return v.UserID }

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string { return v.Roles }

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string { return v.TenantID }

// DenyIfNoViewer returns a rule denying statements run without a viewer in
// the context. It usually comes first in a policy.
func DenyIfNoViewer[T, K any]() Rule[T, K] {
	return ContextRule[T, K](func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule allowing viewers with the given role.
// Other viewers are skipped.
func HasRole[T, K any](role string) Rule[T, K] {
	return HasAnyRole[T, K](role)
}

// HasAnyRole returns a rule allowing viewers holding any of roles.
func HasAnyRole[T, K any](roles ...string) Rule[T, K] {
	return ContextRule[T, K](func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range viewer.GetRoles() {
			if slices.Contains(roles, role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a rule allowing inserts of rows whose column c holds the
// viewer's ID. It judges only the row being created: updates, upserts and
// deletes match stored rows by primary key alone, so their supplied values
// prove nothing and every other statement is skipped. Use IsStoredOwner to
// protect existing rows.
//
//	privacy.IsOwner[Post, int64](PostAuthorColumn)
func IsOwner[T, K any, PT tablekit.Record[T]](c schema.Column[T]) Rule[T, K] {
	return RuleFunc[T, K](func(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || q.Op != sqlgen.OpInsert || in.Kind != tablekit.InputRow {
			return Skip
		}
		ok, err := holds[T, PT](in.Row, c, viewer.GetID())
		if err != nil || !ok {
			return skipOn(err)
		}
		return Allow
	})
}

// IsStoredOwner returns a rule allowing statements on rows the viewer owns.
// Inserts are judged like IsOwner. Other statements on one row are judged
// on the row stored under the same primary key, read through s; updates
// and upserts must also keep the viewer as owner. Upserts of new rows are
// judged like inserts. Statements over the whole table are skipped.
func IsStoredOwner[T, K any, PT tablekit.Record[T]](c schema.Column[T], s *Store[T, K]) Rule[T, K] {
	return RuleFunc[T, K](func(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		ok, err := storedHolds[T, K, PT](ctx, s, q, in, c, viewer.GetID())
		if err != nil || !ok {
			return skipOn(err)
		}
		return Allow
	})
}

// TenantRule returns a rule isolating tenants on insert: rows whose column
// c holds the viewer's tenant are allowed, rows of other tenants are
// denied. It judges only the row being created; every other statement is
// skipped, as are viewers without a tenant. Use StoredTenantRule to isolate
// existing rows.
func TenantRule[T, K any, PT tablekit.Record[T]](c schema.Column[T]) Rule[T, K] {
	return RuleFunc[T, K](func(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" || q.Op != sqlgen.OpInsert || in.Kind != tablekit.InputRow {
			return Skip
		}
		ok, err := holds[T, PT](in.Row, c, viewer.GetTenantID())
		switch {
		case err != nil:
			return err
		case !ok:
			return Denyf("privacy: tenant mismatch")
		}
		return Allow
	})
}

// StoredTenantRule returns a rule isolating tenants on every statement.
// Inserts are judged like TenantRule. Other statements on one row are
// judged on the row stored under the same primary key, read through s;
// updates and upserts must also keep the row in the viewer's tenant.
// Statements over the whole table cannot be scoped to a tenant and are
// denied. Viewers without a tenant are skipped.
func StoredTenantRule[T, K any, PT tablekit.Record[T]](c schema.Column[T], s *Store[T, K]) Rule[T, K] {
	return RuleFunc[T, K](func(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Skip
		}
		if in.Kind != tablekit.InputRow && in.Kind != tablekit.InputPrimaryKey {
			return Denyf("privacy: %s is not scoped to a tenant", q.Op)
		}
		ok, err := storedHolds[T, K, PT](ctx, s, q, in, c, viewer.GetTenantID())
		switch {
		case err != nil:
			return err
		case !ok:
			return Denyf("privacy: tenant mismatch")
		}
		return Allow
	})
}

// TenantRequired returns a rule denying viewers without a tenant.
func TenantRequired[T, K any]() Rule[T, K] {
	return ContextRule[T, K](func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		switch {
		case viewer == nil:
			return Denyf("privacy: viewer required")
		case viewer.GetTenantID() == "":
			return Denyf("privacy: tenant required")
		}
		return Skip
	})
}

// storedHolds reports whether column c equals want on the rows a statement
// touches: the supplied row of inserts and of upserts creating a row, and
// the stored row otherwise, plus the supplied row of updates and upserts.
// Statements with no row or key report false.
func storedHolds[T, K any, PT tablekit.Record[T]](ctx context.Context, s *Store[T, K], q *sqlgen.Query[T], in *tablekit.Input[T, K], c schema.Column[T], want string) (bool, error) {
	if q.Op == sqlgen.OpInsert {
		if in.Kind != tablekit.InputRow {
			return false, nil
		}
		return holds[T, PT](in.Row, c, want)
	}
	stored, ok, err := s.find(ctx, in)
	if err != nil || !ok {
		return false, err
	}
	switch q.Op {
	case sqlgen.OpUpdate, sqlgen.OpUpsert:
		if in.Kind != tablekit.InputRow {
			return false, nil
		}
		if ok, err := holds[T, PT](in.Row, c, want); err != nil || !ok {
			return false, err
		}
		if stored == nil {
			// Upserts of new rows insert; updates of missing rows touch nothing.
			return true, nil
		}
	}
	if stored == nil {
		return false, nil
	}
	return holds[T, PT](stored, c, want)
}

func holds[T any, PT tablekit.Record[T]](row *T, c schema.Column[T], want string) (bool, error) {
	value, err := columnValue[T, PT](row, c)
	if err != nil {
		return false, err
	}
	return value == want, nil
}

func skipOn(err error) error {
	if err != nil {
		return err
	}
	return Skip
}

// columnValue binds column c of row and renders the value as a string.
func columnValue[T any, PT tablekit.Record[T]](row *T, c schema.Column[T]) (string, error) {
	var args tablekit.Args
	if err := PT(row).Bind(c, &args); err != nil {
		return "", err
	}
	if len(args) != 1 {
		return "", fmt.Errorf("privacy: column %s bound %d values", c, len(args))
	}
	switch v := args[0].(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}
