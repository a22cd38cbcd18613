package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/adrata/backend/pkg/query"
	"github.com/adrata/backend/pkg/utils"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func recordTime(r query.Record, col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	}
	return nil
}

func recordFloat(r query.Record, col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return 0
}

func recordInt(r query.Record, col string) int {
	return utils.ToInt(r[col])
}

func recordBool(r query.Record, col string) bool {
	return utils.ToBool(r[col])
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// nullable maps "" to nil so optional columns are written as NULL.
func nullable(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
