package mapping

import (
	"encoding/json"
	"strings"

	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"gorm.io/datatypes"
)

// Kind is the canonical value type of a whitelisted column.
type Kind int

const (
	// KindString columns read back as string, with "" stored as NULL.
	KindString Kind = iota
	// KindInt columns read back as int64.
	KindInt
	// KindFloat columns read back as float64.
	KindFloat
	// KindBool columns read back as bool.
	KindBool
	// KindTime columns read back as a UTC time.Time.
	KindTime
	// KindDate columns read back as a "2006-01-02" string.
	KindDate
	// KindJSON columns read back as json.RawMessage.
	KindJSON
)

const dateLayout = "2006-01-02"

// Decode converts a raw driver value into the canonical form used in Entity fields.
// NULL and empty values decode to nil.
func (k Kind) Decode(v any) any {
	if v == nil {
		return nil
	}
	switch k {
	case KindInt:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil
		}
		return utils.ToInt64(v)
	case KindFloat:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil
		}
		return utils.ToFloat(v)
	case KindBool:
		return utils.ToBool(v)
	case KindTime:
		t, ok := utils.ToTime(v)
		if !ok {
			return nil
		}
		return t
	case KindDate:
		t, ok := utils.ToTime(v)
		if !ok {
			return nil
		}
		return t.Format(dateLayout)
	case KindJSON:
		var raw []byte
		switch t := v.(type) {
		case []byte:
			raw = t
		case string:
			raw = []byte(t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return nil
			}
			raw = b
		}
		if len(raw) == 0 || string(raw) == "null" {
			return nil
		}
		return json.RawMessage(append([]byte(nil), raw...))
	default:
		s := utils.ToString(v)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return s
	}
}

// Encode converts an Entity field value into a value the driver can bind.
func (k Kind) Encode(v any) any {
	if v == nil {
		return nil
	}
	switch k {
	case KindInt, KindFloat, KindBool, KindString, KindDate:
		decoded := k.Decode(v)
		if decoded == nil {
			return nil
		}
		return decoded
	case KindTime:
		t, ok := utils.ToTime(v)
		if !ok {
			return nil
		}
		return t
	case KindJSON:
		switch t := v.(type) {
		case json.RawMessage:
			return datatypes.JSON(t)
		case datatypes.JSON:
			return t
		case []byte:
			return datatypes.JSON(t)
		case string:
			return datatypes.JSON(t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return nil
			}
			return datatypes.JSON(b)
		}
	default:
		return v
	}
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindDate:
		return "date"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}
