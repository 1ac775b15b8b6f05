package crud

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

// scanRecords reads every row into a Record and closes rows.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = normalize(vals[i])
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// normalize turns driver values into JSON-friendly ones. JSON columns arrive
// as bytes and are passed through untouched.
func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		b := make([]byte, len(val))
		copy(b, val)
		if json.Valid(b) {
			return json.RawMessage(b)
		}
		return string(b)
	case [16]byte:
		return uuid.UUID(val).String()
	default:
		return v
	}
}
