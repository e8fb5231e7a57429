package graph

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrCoercion indicates a stored property value could not be converted to
// the scalar type a projection expects.
var ErrCoercion = errors.New("property coercion failed")

// Props holds vertex or edge properties.
//
// Values are one of int64, int, float64, string, bool, time.Time or []string.
// The typed accessors return the zero value for absent keys and wrap
// ErrCoercion when the stored value has an incompatible type.
type Props map[string]any

// Has reports whether name is set.
func (p Props) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Int64 reads an integer property.
func (p Props) Int64(name string) (int64, error) {
	switch v := p[name].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, coercionError(name, v, "int64")
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, coercionError(name, v, "int64")
		}
		return n, nil
	default:
		return 0, coercionError(name, v, "int64")
	}
}

// Int reads an integer property as int.
func (p Props) Int(name string) (int, error) {
	n, err := p.Int64(name)
	return int(n), err
}

// Float64 reads a numeric property, widening integers.
func (p Props) Float64(name string) (float64, error) {
	switch v := p[name].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, coercionError(name, v, "float64")
	}
}

// String reads a string property. Non-string scalars are formatted.
func (p Props) String(name string) (string, error) {
	switch v := p[name].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case int64, int, float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", coercionError(name, v, "string")
	}
}

// Strings reads a list-of-strings property.
func (p Props) Strings(name string) ([]string, error) {
	switch v := p[name].(type) {
	case nil:
		return []string{}, nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, coercionError(name, item, "[]string")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, coercionError(name, v, "[]string")
	}
}

// Bool reads a boolean property.
func (p Props) Bool(name string) (bool, error) {
	switch v := p[name].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, coercionError(name, v, "bool")
	}
}

// Time reads a date property. Integers are interpreted as epoch millis.
func (p Props) Time(name string) (time.Time, error) {
	switch v := p[name].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case int:
		return time.UnixMilli(int64(v)).UTC(), nil
	default:
		return time.Time{}, coercionError(name, v, "time")
	}
}

// Millis reads a date property as epoch milliseconds. Absent dates are 0.
func (p Props) Millis(name string) (int64, error) {
	switch v := p[name].(type) {
	case nil:
		return 0, nil
	case time.Time:
		return v.UnixMilli(), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, coercionError(name, v, "epoch millis")
	}
}

func coercionError(name string, v any, want string) error {
	return fmt.Errorf("%w: %q holds %T, want %s", ErrCoercion, name, v, want)
}
