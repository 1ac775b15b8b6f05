// Package crud implements the generic list/get/create/update/delete store
// shared by every content resource. Queries are built from a Resource
// description against whitelisted columns only.
package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidColumn = errors.New("invalid column")
	ErrCancelled     = errors.New("operation cancelled")
	ErrConstraint    = errors.New("constraint violation")
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Resource describes one table exposed through the store.
type Resource struct {
	Name            string
	Table           string
	IDColumn        string
	Columns         []string
	Writable        []string
	SearchFields    []string
	SortColumns     []string
	DefaultSort     string
	DefaultOrder    string
	Filters         map[string]string
	Scope           string
	Localized       []string
	NotFoundMessage string
	// Timestamps marks tables carrying an updated_at column.
	Timestamps bool
}

// Record is one row keyed by column name.
type Record map[string]any

// ID returns the record's primary key value.
func (r Record) ID(res *Resource) any {
	return r[res.idColumn()]
}

// String returns the named column as a string, or "" when absent or not text.
func (r Record) String(column string) string {
	if s, ok := r[column].(string); ok {
		return s
	}
	return ""
}

// Field is one column assignment in a write.
type Field struct {
	Column string
	Value  any
}

// Values is an ordered list of column assignments.
type Values []Field

// Set replaces an existing assignment or appends a new one.
func (v *Values) Set(column string, value any) {
	for i := range *v {
		if (*v)[i].Column == column {
			(*v)[i].Value = value
			return
		}
	}
	*v = append(*v, Field{Column: column, Value: value})
}

// Get returns the value assigned to column.
func (v Values) Get(column string) (any, bool) {
	for _, f := range v {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// ListParams are the normalized inputs to List.
type ListParams struct {
	Page    int
	Limit   int
	Offset  int
	Search  string
	Sort    string
	Order   string
	Filters map[string]string
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// Page is one page of list results.
type Page struct {
	Data       []Record   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Hooks run inside the write transaction. Before hooks may rewrite the
// values; a BeforeDelete returning false vetoes the delete.
type Hooks struct {
	BeforeInsert func(ctx context.Context, tx *sql.Tx, values Values) (Values, error)
	AfterInsert  func(ctx context.Context, tx *sql.Tx, rec Record) error
	BeforeUpdate func(ctx context.Context, tx *sql.Tx, current Record, values Values) (Values, error)
	AfterUpdate  func(ctx context.Context, tx *sql.Tx, rec Record) error
	BeforeDelete func(ctx context.Context, tx *sql.Tx, rec Record) (bool, error)
	AfterDelete  func(ctx context.Context, tx *sql.Tx, rec Record) error
}

// Chain returns hooks running h first and then next for every stage.
func (h Hooks) Chain(next Hooks) Hooks {
	return Hooks{
		BeforeInsert: chainValues(h.BeforeInsert, next.BeforeInsert),
		AfterInsert:  chainRecord(h.AfterInsert, next.AfterInsert),
		BeforeUpdate: chainUpdate(h.BeforeUpdate, next.BeforeUpdate),
		AfterUpdate:  chainRecord(h.AfterUpdate, next.AfterUpdate),
		BeforeDelete: chainVeto(h.BeforeDelete, next.BeforeDelete),
		AfterDelete:  chainRecord(h.AfterDelete, next.AfterDelete),
	}
}

func chainValues(a, b func(context.Context, *sql.Tx, Values) (Values, error)) func(context.Context, *sql.Tx, Values) (Values, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, tx *sql.Tx, v Values) (Values, error) {
		v, err := a(ctx, tx, v)
		if err != nil {
			return nil, err
		}
		return b(ctx, tx, v)
	}
}

func chainUpdate(a, b func(context.Context, *sql.Tx, Record, Values) (Values, error)) func(context.Context, *sql.Tx, Record, Values) (Values, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, tx *sql.Tx, cur Record, v Values) (Values, error) {
		v, err := a(ctx, tx, cur, v)
		if err != nil {
			return nil, err
		}
		return b(ctx, tx, cur, v)
	}
}

func chainRecord(a, b func(context.Context, *sql.Tx, Record) error) func(context.Context, *sql.Tx, Record) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, tx *sql.Tx, rec Record) error {
		if err := a(ctx, tx, rec); err != nil {
			return err
		}
		return b(ctx, tx, rec)
	}
}

func chainVeto(a, b func(context.Context, *sql.Tx, Record) (bool, error)) func(context.Context, *sql.Tx, Record) (bool, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, tx *sql.Tx, rec Record) (bool, error) {
		ok, err := a(ctx, tx, rec)
		if err != nil || !ok {
			return ok, err
		}
		return b(ctx, tx, rec)
	}
}

func (r *Resource) idColumn() string {
	if r.IDColumn == "" {
		return "id"
	}
	return r.IDColumn
}

func (r *Resource) notFound() string {
	if r.NotFoundMessage != "" {
		return r.NotFoundMessage
	}
	return "Resource not found"
}

// IDColumnName returns the primary key column.
func (r *Resource) IDColumnName() string {
	return r.idColumn()
}

// Label is Name with an upper-cased first letter, for messages.
func (r *Resource) Label() string {
	if r.Name == "" {
		return "Resource"
	}
	return strings.ToUpper(r.Name[:1]) + r.Name[1:]
}

// NotFoundError returns the message clients see when a row is missing.
func (r *Resource) NotFoundError() string {
	return r.notFound()
}

func (r *Resource) selectList() string {
	return strings.Join(r.Columns, ", ")
}

func (r *Resource) checkWritable(values Values) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no columns to write", ErrInvalidColumn)
	}
	for _, f := range values {
		if !slices.Contains(r.Writable, f.Column) {
			return fmt.Errorf("%w: %s.%s", ErrInvalidColumn, r.Table, f.Column)
		}
	}
	return nil
}

// WithScope returns a copy restricted by an extra predicate.
func (r *Resource) WithScope(predicate string) *Resource {
	cp := *r
	cp.Scope = predicate
	return &cp
}
