package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

// timestamp layouts SQLite may hand back as text
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

func scanResult(rows *sql.Rows) (entity.ExtractionResult, error) {
	var (
		res     entity.ExtractionResult
		hash    sql.NullString
		size    sql.NullInt64
		method  string
		text    sql.NullString
		pages   sql.NullInt64
		seconds sql.NullFloat64
		ts      any
		errMsg  sql.NullString
	)
	if err := rows.Scan(&res.ID, &res.FilePath, &hash, &size, &method, &text, &pages, &seconds, &ts, &res.Success, &errMsg); err != nil {
		return res, err
	}
	res.Method = constants.Method(method)
	res.ProcessingTimeSeconds = seconds.Float64
	if hash.Valid {
		res.FileHash = &hash.String
	}
	if size.Valid {
		res.FileSize = &size.Int64
	}
	if text.Valid {
		res.Text = &text.String
	}
	if pages.Valid {
		n := int(pages.Int64)
		res.PageCount = &n
	}
	if errMsg.Valid {
		res.ErrorMessage = &errMsg.String
	}
	t, err := asTime(ts)
	if err != nil {
		return res, err
	}
	res.Timestamp = t
	return res, nil
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseTime(string(t))
	case string:
		return parseTime(t)
	case int64:
		return time.Unix(t, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// time.Time.String() output carries a monotonic suffix and zone name
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// nullable turns a nil pointer into a SQL NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
