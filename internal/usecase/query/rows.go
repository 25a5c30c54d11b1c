package query

import (
	"fmt"

	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
)

// Accessors for loosely typed driver values. Missing keys and nulls read as
// zero values.

func RowString(row repository.Row, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func RowInt64(row repository.Row, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func RowFloat64(row repository.Row, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// RowStrings reads a list column. The driver hands lists back as []any.
func RowStrings(row repository.Row, key string) []string {
	switch v := row[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	default:
		return nil
	}
}

func RowMap(row repository.Row, key string) map[string]any {
	m, _ := row[key].(map[string]any)
	return m
}
