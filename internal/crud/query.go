package crud

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// NormalizeListParams clamps paging inputs: page >= 1, limit in [1, MaxLimit]
// (DefaultLimit when unset), offset derived from both.
func NormalizeListParams(p ListParams) ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	p.Offset = (p.Page - 1) * p.Limit
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// escapeLike makes user input literal inside a LIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// buildWhere returns the WHERE clause (with leading space, or empty) and its args.
func buildWhere(res *Resource, p ListParams) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if res.Scope != "" {
		conds = append(conds, "("+res.Scope+")")
	}

	keys := make([]string, 0, len(p.Filters))
	for k := range p.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		column, ok := res.Filters[key]
		if !ok || p.Filters[key] == "" {
			continue
		}
		args = append(args, p.Filters[key])
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}

	if p.Search != "" && len(res.SearchFields) > 0 {
		args = append(args, "%"+escapeLike(p.Search)+"%")
		placeholder := "$" + strconv.Itoa(len(args))
		ors := make([]string, len(res.SearchFields))
		for i, field := range res.SearchFields {
			ors[i] = field + " ILIKE " + placeholder
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderBy resolves the sort column against the whitelist and appends the id
// as a tie-breaker so paging is stable.
func orderBy(res *Resource, p ListParams) string {
	column := res.DefaultSort
	if p.Sort != "" && slices.Contains(res.SortColumns, p.Sort) {
		column = p.Sort
	}
	if column == "" {
		column = res.idColumn()
	}

	dir := strings.ToUpper(res.DefaultOrder)
	switch strings.ToUpper(p.Order) {
	case "ASC", "DESC":
		dir = strings.ToUpper(p.Order)
	}
	if dir != "ASC" {
		dir = "DESC"
	}

	clause := column + " " + dir
	if column != res.idColumn() {
		clause += ", " + res.idColumn() + " " + dir
	}
	return clause
}

func buildInsert(res *Resource, values Values) (string, []any) {
	cols := make([]string, len(values))
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, f := range values {
		cols[i] = f.Column
		marks[i] = "$" + strconv.Itoa(i+1)
		args[i] = f.Value
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		res.Table, strings.Join(cols, ", "), strings.Join(marks, ", "), res.idColumn())
	return query, args
}

func buildUpdate(res *Resource, id any, values Values) (string, []any) {
	sets := make([]string, 0, len(values)+1)
	args := make([]any, 0, len(values)+1)
	for _, f := range values {
		args = append(args, f.Value)
		sets = append(sets, f.Column+" = $"+strconv.Itoa(len(args)))
	}
	if res.Timestamps {
		sets = append(sets, "updated_at = NOW()")
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		res.Table, strings.Join(sets, ", "), res.idColumn(), len(args))
	return query, args
}

func buildSelectOne(res *Resource, column string) string {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", res.selectList(), res.Table, column)
	if res.Scope != "" {
		query += " AND (" + res.Scope + ")"
	}
	return query
}
