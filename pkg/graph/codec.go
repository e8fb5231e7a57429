package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// Property values are serialised with a one-letter type tag so that int64,
// float64 and time.Time survive a trip through JSON unchanged.
const (
	tagInt64   = "i"
	tagInt     = "n"
	tagFloat   = "f"
	tagString  = "s"
	tagBool    = "b"
	tagTime    = "t"
	tagStrings = "ss"
)

type taggedValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

// MarshalJSON implements json.Marshaler.
func (p Props) MarshalJSON() ([]byte, error) {
	out := make(map[string]taggedValue, len(p))
	for name, v := range p {
		var (
			tag string
			raw []byte
			err error
		)
		switch x := v.(type) {
		case int64:
			tag = tagInt64
			raw, err = json.Marshal(x)
		case int:
			tag = tagInt
			raw, err = json.Marshal(x)
		case float64:
			tag = tagFloat
			raw, err = json.Marshal(x)
		case string:
			tag = tagString
			raw, err = json.Marshal(x)
		case bool:
			tag = tagBool
			raw, err = json.Marshal(x)
		case time.Time:
			tag = tagTime
			raw, err = json.Marshal(x.UTC().Format(time.RFC3339Nano))
		case []string:
			tag = tagStrings
			raw, err = json.Marshal(x)
		case nil:
			continue
		default:
			return nil, fmt.Errorf("property %q: unsupported type %T", name, v)
		}
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = taggedValue{T: tag, V: raw}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Props) UnmarshalJSON(data []byte) error {
	var in map[string]taggedValue
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	props := make(Props, len(in))
	for name, tv := range in {
		v, err := decodeTagged(tv)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		props[name] = v
	}
	*p = props
	return nil
}

func decodeTagged(tv taggedValue) (any, error) {
	switch tv.T {
	case tagInt64:
		var x int64
		err := json.Unmarshal(tv.V, &x)
		return x, err
	case tagInt:
		var x int
		err := json.Unmarshal(tv.V, &x)
		return x, err
	case tagFloat:
		var x float64
		err := json.Unmarshal(tv.V, &x)
		return x, err
	case tagString:
		var x string
		err := json.Unmarshal(tv.V, &x)
		return x, err
	case tagBool:
		var x bool
		err := json.Unmarshal(tv.V, &x)
		return x, err
	case tagTime:
		var s string
		if err := json.Unmarshal(tv.V, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case tagStrings:
		var x []string
		err := json.Unmarshal(tv.V, &x)
		return x, err
	default:
		return nil, fmt.Errorf("unknown value tag %q", tv.T)
	}
}
