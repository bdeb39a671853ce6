package reconcile

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
)

// Equal compares two field values the way they round-trip through the store.
// nil and "" are the same, numbers compare by value whatever their Go type,
// timestamps compare as instants and JSON documents compare structurally.
func Equal(a, b any) bool {
	aEmpty, bEmpty := isEmpty(a), isEmpty(b)
	if aEmpty || bEmpty {
		return aEmpty && bEmpty
	}

	if isTime(a) || isTime(b) {
		ta, okA := utils.ToTime(a)
		tb, okB := utils.ToTime(b)
		return okA && okB && ta.Equal(tb)
	}

	if _, ok := a.(bool); ok {
		return a.(bool) == utils.ToBool(b)
	}
	if _, ok := b.(bool); ok {
		return b.(bool) == utils.ToBool(a)
	}

	// Numeric strings only compare by value against a real number, so "06000" != "6000".
	if isNumeric(a) || isNumeric(b) {
		fa, okA := asNumber(a)
		fb, okB := asNumber(b)
		if okA && okB {
			return utils.FloatEquals(fa, fb)
		}
	}

	if isJSON(a) || isJSON(b) {
		return jsonEqual(a, b)
	}

	if reflect.DeepEqual(a, b) {
		return true
	}
	return utils.ToString(a) == utils.ToString(b)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case *time.Time:
		return t == nil
	case *string:
		return t == nil || strings.TrimSpace(*t) == ""
	case *int64:
		return t == nil
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func isTime(v any) bool {
	switch v.(type) {
	case time.Time, *time.Time:
		return true
	}
	return false
}

func isNumeric(v any) bool {
	if _, ok := v.(*int64); ok {
		return true
	}
	return utils.IsNumber(v)
}

func asNumber(v any) (float64, bool) {
	if utils.IsNumber(v) {
		return utils.ToFloat(v), true
	}
	if p, ok := v.(*int64); ok {
		return float64(*p), true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}

func isJSON(v any) bool {
	switch v.(type) {
	case json.RawMessage, map[string]any, []any:
		return true
	}
	return false
}

func jsonEqual(a, b any) bool {
	da, errA := normaliseJSON(a)
	db, errB := normaliseJSON(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(da, db)
}

func normaliseJSON(v any) (any, error) {
	var raw []byte
	switch t := v.(type) {
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
