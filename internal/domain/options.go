package domain

// Options is the opaque option map passed to probe executors and
// action senders. JSON decoding produces float64 for numbers and
// []any for lists, so the accessors normalise those forms.
type Options map[string]any

// Str returns the string option for key, or def when absent or not a
// string.
func (o Options) Str(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Int returns the integer option for key, or def when absent or not
// numeric.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean option for key, or def when absent or not a
// bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StrList returns the string-list option for key, or nil.
func (o Options) StrList(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
