package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gmp-id/gmpcms/internal/database"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store runs Resource queries against a database handle.
type Store struct {
	db *sql.DB
}

// NewStore wraps db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for resource-specific queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// List returns one page of rows matching params.
func (s *Store) List(ctx context.Context, res *Resource, params ListParams) (Page, error) {
	p := NormalizeListParams(params)
	where, args := buildWhere(res, p)

	var total int64
	countQuery := "SELECT COUNT(*) FROM " + res.Table + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count %s: %w", res.Table, err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		res.selectList(), res.Table, where, orderBy(res, p), len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return Page{}, fmt.Errorf("list %s: %w", res.Table, err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return Page{}, fmt.Errorf("scan %s: %w", res.Table, err)
	}

	totalPages := TotalPages(total, p.Limit)
	return Page{
		Data: records,
		Pagination: Pagination{
			Total:      total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: totalPages,
			HasMore:    p.Page < totalPages,
		},
	}, nil
}

// Get returns the row with the given primary key.
func (s *Store) Get(ctx context.Context, res *Resource, id any) (Record, error) {
	return s.GetBy(ctx, res, res.idColumn(), id)
}

// GetBy returns the first row whose column equals value. The column must be
// one of the resource's selectable columns.
func (s *Store) GetBy(ctx context.Context, res *Resource, column string, value any) (Record, error) {
	if !slices.Contains(res.Columns, column) {
		return nil, fmt.Errorf("%w: %s.%s", ErrInvalidColumn, res.Table, column)
	}
	rec, err := fetchOne(ctx, s.db, res, column, value, true)
	if err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// Count returns the number of rows visible through the resource scope.
func (s *Store) Count(ctx context.Context, res *Resource) (int64, error) {
	where, args := buildWhere(res, ListParams{})
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+res.Table+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", res.Table, err)
	}
	return total, nil
}

// Create inserts values in one transaction and returns the stored row.
// AfterInsert sees the written values plus the new id.
func (s *Store) Create(ctx context.Context, res *Resource, values Values, hooks Hooks) (Record, error) {
	if err := res.checkWritable(values); err != nil {
		return nil, err
	}

	var rec Record
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if hooks.BeforeInsert != nil {
			var err error
			if values, err = hooks.BeforeInsert(ctx, tx, values); err != nil {
				return err
			}
			if err := res.checkWritable(values); err != nil {
				return err
			}
		}

		query, args := buildInsert(res, values)
		var id any
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return err
		}

		if hooks.AfterInsert != nil {
			written := merge(nil, values)
			written[res.idColumn()] = id
			if err := hooks.AfterInsert(ctx, tx, written); err != nil {
				return err
			}
		}

		var err error
		rec, err = fetchOne(ctx, tx, res, res.idColumn(), id, false)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// Update applies values to an existing row in one transaction.
func (s *Store) Update(ctx context.Context, res *Resource, id any, values Values, hooks Hooks) (Record, error) {
	if err := res.checkWritable(values); err != nil {
		return nil, err
	}

	var rec Record
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := fetchOne(ctx, tx, res, res.idColumn(), id, false)
		if err != nil {
			return err
		}

		if hooks.BeforeUpdate != nil {
			if values, err = hooks.BeforeUpdate(ctx, tx, current, values); err != nil {
				return err
			}
			if err := res.checkWritable(values); err != nil {
				return err
			}
		}

		query, args := buildUpdate(res, id, values)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		if hooks.AfterUpdate != nil {
			if err := hooks.AfterUpdate(ctx, tx, merge(current, values)); err != nil {
				return err
			}
		}

		rec, err = fetchOne(ctx, tx, res, res.idColumn(), id, false)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// Delete removes a row in one transaction. A BeforeDelete hook returning
// false aborts with ErrCancelled.
func (s *Store) Delete(ctx context.Context, res *Resource, id any, hooks Hooks) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := fetchOne(ctx, tx, res, res.idColumn(), id, false)
		if err != nil {
			return err
		}

		if hooks.BeforeDelete != nil {
			proceed, err := hooks.BeforeDelete(ctx, tx, current)
			if err != nil {
				return err
			}
			if !proceed {
				return ErrCancelled
			}
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", res.Table, res.idColumn())
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return err
		}

		if hooks.AfterDelete != nil {
			return hooks.AfterDelete(ctx, tx, current)
		}
		return nil
	})
	return translate(err)
}

func fetchOne(ctx context.Context, q Querier, res *Resource, column string, value any, scoped bool) (Record, error) {
	r := res
	if !scoped && res.Scope != "" {
		r = res.WithScope("")
	}
	rows, err := q.QueryContext(ctx, buildSelectOne(r, column), value)
	if err != nil {
		return nil, err
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

func merge(current Record, values Values) Record {
	out := make(Record, len(current)+len(values))
	for k, v := range current {
		out[k] = v
	}
	for _, f := range values {
		out[f.Column] = f.Value
	}
	return out
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case "23502", "23503", "23514", "22P02", "22007", "22008":
			return fmt.Errorf("%w: %w", ErrConstraint, err)
		}
	}
	return err
}
