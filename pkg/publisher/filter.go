package publisher

// FilterEmpty returns a copy of props without nil or empty-string values.
//
// A DATA update cannot express "clear this field": a value deliberately set to ""
// is indistinguishable from an absent one and is dropped as well.
func FilterEmpty(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	return out
}
