// Package repositories holds the gorm-backed stores. Every store resolves
// its connection through the request context so that work started inside
// Transactor.WithinTransaction shares one transaction.
package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anacarla/crm-api/apperrors"
)

type txKey struct{}

// txState is the transaction shared by nested WithinTransaction calls and
// the hooks waiting for it to finish
type txState struct {
	tx    *gorm.DB
	after []func()
}

// Transactor opens scoped transactions
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a new Transactor
func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction runs fn inside a transaction carried by the context
// passed to fn. If ctx already carries a transaction, fn joins it and the
// outer caller decides whether to commit.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	state := &txState{}
	defer func() {
		for _, hook := range state.after {
			hook()
		}
	}()
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.tx = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
}

// AfterTransaction runs fn once the outermost transaction carried by ctx
// has committed or rolled back, or immediately when ctx carries none.
// Hooks run in registration order.
func (t *Transactor) AfterTransaction(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.after = append(state.after, fn)
		return
	}
	fn()
}

// conn returns the transaction carried by ctx, or db bound to ctx
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return db.WithContext(ctx)
}

// dbError classifies a gorm error. Missing records become not found errors
// for the named resource and everything else is a transient failure.
func dbError(op, resource string, id any, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource, id)
	}
	return apperrors.Transient(op, err)
}

// Page is a 0-based page request
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize clamps the page to sane bounds
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p Page) offset() int {
	return p.Number * p.Size
}
