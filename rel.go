package tablekit

import (
	"context"
	"fmt"

	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
	"github.com/syssam/tablekit/schema"
)

// Relation links child entities C to their parent P through a foreign
// key column of C. It is resolved in both directions: RefersTo walks from
// a child to its parent, ReferredBy from a parent to its children.
type Relation[C, CK, P, PK any] struct {
	child  *Model[C, CK]
	parent *Model[P, PK]
	fk     schema.Column[C]

	children       *sqlgen.Query[C]
	deleteChildren *sqlgen.Query[C]
}

// NewRelation declares the relation between child and parent through fk.
// fk must be a foreign key of the child table referencing the parent table.
func NewRelation[C, CK, P, PK any](child *Model[C, CK], parent *Model[P, PK], fk schema.Column[C]) (*Relation[C, CK, P, PK], error) {
	ct, pt := child.Table(), parent.Table()
	if !ct.Has(fk) {
		return nil, fmt.Errorf("%w: column %s does not belong to %s", ErrInvalidRelation, fk, ct.Ref())
	}
	ref, ok := fk.References()
	if !ok {
		return nil, fmt.Errorf("%w: column %s of %s is a %s column", ErrInvalidRelation, fk, ct.Ref(), fk.Role())
	}
	if ref != pt.Ref() {
		return nil, fmt.Errorf("%w: column %s of %s references %s, not %s", ErrInvalidRelation, fk, ct.Ref(), ref, pt.Ref())
	}
	return &Relation[C, CK, P, PK]{
		child:          child,
		parent:         parent,
		fk:             fk,
		children:       sqlgen.SelectBy(ct, fk, child.compileOpt()),
		deleteChildren: sqlgen.DeleteBy(ct, fk, child.compileOpt()),
	}, nil
}

// MustRelation is like NewRelation but panics on error.
func MustRelation[C, CK, P, PK any](child *Model[C, CK], parent *Model[P, PK], fk schema.Column[C]) *Relation[C, CK, P, PK] {
	r, err := NewRelation(child, parent, fk)
	if err != nil {
		panic(err)
	}
	return r
}

// ForeignKey returns the column linking children to their parent.
func (r *Relation[C, CK, P, PK]) ForeignKey() schema.Column[C] { return r.fk }

// Child returns the model of the referencing entity.
func (r *Relation[C, CK, P, PK]) Child() *Model[C, CK] { return r.child }

// Parent returns the model of the referenced entity.
func (r *Relation[C, CK, P, PK]) Parent() *Model[P, PK] { return r.parent }

// RefersTo returns the child-to-parent direction of the relation.
func (r *Relation[C, CK, P, PK]) RefersTo() RefersTo[C, CK, P, PK] {
	return RefersTo[C, CK, P, PK]{r: r}
}

// ReferredBy returns the parent-to-children direction of the relation.
func (r *Relation[C, CK, P, PK]) ReferredBy() ReferredBy[C, CK, P, PK] {
	return ReferredBy[C, CK, P, PK]{r: r}
}

// RefersTo resolves the parent of a child entity.
type RefersTo[C, CK, P, PK any] struct {
	r *Relation[C, CK, P, PK]
}

// Resolve fetches the parent referenced by child. It fails with an error
// satisfying IsNotFound when the parent does not exist.
func (v RefersTo[C, CK, P, PK]) Resolve(ctx context.Context, ex dialect.ExecQuerier, child *C) (*P, error) {
	q := v.r.parent.stmts.selectOne
	pending := v.r.parent.Typed(q)
	if err := v.r.child.Bind(child, v.r.fk, pending); err != nil {
		return nil, err
	}
	v.r.parent.trace(ctx, q, pending.args)
	return pending.One(ctx, ex)
}

// ReferredBy resolves and deletes the children of a parent entity.
type ReferredBy[C, CK, P, PK any] struct {
	r *Relation[C, CK, P, PK]
}

// Resolve fetches every child referencing parent.
func (v ReferredBy[C, CK, P, PK]) Resolve(ctx context.Context, ex dialect.ExecQuerier, parent *P) ([]*C, error) {
	pending := v.r.child.Typed(v.r.children)
	if err := v.bindParent(parent, pending); err != nil {
		return nil, err
	}
	v.r.child.trace(ctx, v.r.children, pending.args)
	return pending.All(ctx, ex)
}

// ResolveByKey fetches every child referencing the parent with primary key pk.
func (v ReferredBy[C, CK, P, PK]) ResolveByKey(ctx context.Context, ex dialect.ExecQuerier, pk PK) ([]*C, error) {
	pending := v.r.child.Typed(v.r.children)
	pending.Bind(pk)
	v.r.child.trace(ctx, v.r.children, pending.args)
	return pending.All(ctx, ex)
}

// DeleteAll deletes every child referencing parent.
func (v ReferredBy[C, CK, P, PK]) DeleteAll(ctx context.Context, ex dialect.ExecQuerier, parent *P) (dialect.Result, error) {
	pending := v.r.child.Exec(v.r.deleteChildren)
	if err := v.bindParent(parent, pending); err != nil {
		return nil, err
	}
	v.r.child.trace(ctx, v.r.deleteChildren, pending.args)
	return pending.Exec(ctx, ex)
}

// DeleteAllByKey deletes every child referencing the parent with primary key pk.
func (v ReferredBy[C, CK, P, PK]) DeleteAllByKey(ctx context.Context, ex dialect.ExecQuerier, pk PK) (dialect.Result, error) {
	pending := v.r.child.Exec(v.r.deleteChildren)
	pending.Bind(pk)
	v.r.child.trace(ctx, v.r.deleteChildren, pending.args)
	return pending.Exec(ctx, ex)
}

func (v ReferredBy[C, CK, P, PK]) bindParent(parent *P, dst Bindable) error {
	return v.r.parent.Bind(parent, v.r.parent.Table().PrimaryKey(), dst)
}
