package tom

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Keys tried, in order, when a text field is encoded as an object
var textObjectKeys = []string{"@value", "value", "text", "en"}

// JSON object with lazily decoded members
type Fields map[string]json.RawMessage

func decode(raw json.RawMessage) (v any, ok bool) {
	if len(raw) == 0 {
		return nil, false
	}
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	if err := d.Decode(&v); err != nil {
		return nil, false
	}
	return v, v != nil
}

// Text normalizes a metadata value into a single string.
// Strings are returned as is, numbers and booleans are formatted, arrays are concatenated
// (long strings are split into 64 byte chunks on chain) and objects are searched for a text member.
// Empty results are reported as absent.
func Text(v any) (out string, ok bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		out = x
	case json.Number:
		out = x.String()
	case bool:
		out = strconv.FormatBool(x)
	case []any:
		var sb strings.Builder
		for _, item := range x {
			if s, isString := item.(string); isString {
				sb.WriteString(s)
			}
		}
		out = sb.String()
	case map[string]any:
		for _, key := range textObjectKeys {
			if out, ok = Text(x[key]); ok {
				return
			}
		}
		keys := maps.Keys(x)
		slices.Sort(keys)
		for _, key := range keys {
			if out, ok = Text(x[key]); ok {
				return
			}
		}
		return "", false
	default:
		return "", false
	}
	return out, out != ""
}

func (self Fields) Has(key string) bool {
	_, ok := self.value(key)
	return ok
}

func (self Fields) value(key string) (any, bool) {
	if self == nil {
		return nil, false
	}
	return decode(self[key])
}

// Normalized text of the member, see Text
func (self Fields) Text(key string) (string, bool) {
	v, ok := self.value(key)
	if !ok {
		return "", false
	}
	return Text(v)
}

// Member only if it is a non-empty JSON string
func (self Fields) String(key string) (string, bool) {
	v, ok := self.value(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Integer member. Numeric strings are accepted
func (self Fields) Int64(key string) (int64, bool) {
	v, ok := self.value(key)
	if !ok {
		return 0, false
	}
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Raw JSON of the member, nil when absent or null
func (self Fields) Raw(key string) json.RawMessage {
	if _, ok := self.value(key); !ok {
		return nil
	}
	return self[key]
}

// Member decoded as a nested object, nil if it isn't one
func (self Fields) Object(key string) Fields {
	raw := self.Raw(key)
	if raw == nil {
		return nil
	}
	var out Fields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// Elements of an array member. Elements that aren't objects become empty Fields
func (self Fields) Array(key string) (out []Fields, ok bool) {
	raw := self.Raw(key)
	if raw == nil {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out = make([]Fields, 0, len(items))
	for _, item := range items {
		var f Fields
		if err := json.Unmarshal(item, &f); err != nil {
			f = Fields{}
		}
		out = append(out, f)
	}
	return out, true
}

// String elements of an array member, other elements are ignored
func (self Fields) Strings(key string) []string {
	v, ok := self.value(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Member names in ascending order
func (self Fields) Keys() []string {
	keys := maps.Keys(self)
	slices.Sort(keys)
	return keys
}
