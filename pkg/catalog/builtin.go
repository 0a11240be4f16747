package catalog

// Built-in component types produced by live-chat normalization.
const (
	TypeText       = "text"
	TypeListPicker = "list-picker"
	TypeTimePicker = "time-picker"
)

// BuiltinVersion is the version advertised for built-in components.
const BuiltinVersion = "1.0.0"

func builtins() []Entry {
	return []Entry{
		{
			Type:         TypeText,
			ComponentURL: "builtin://" + TypeText,
			Version:      BuiltinVersion,
			Description:  "Markdown text, revealed progressively while streaming.",
			Category:     "message",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content":  map[string]any{"type": "string"},
					"subtitle": map[string]any{"type": "string"},
				},
			},
		},
		{
			Type:         TypeListPicker,
			ComponentURL: "builtin://" + TypeListPicker,
			Version:      BuiltinVersion,
			Description:  "A list of options the user picks one from.",
			Category:     "interactive",
			Defaults:     map[string]any{"focusable": true},
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"elements"},
				"properties": map[string]any{
					"title":    map[string]any{"type": "string"},
					"subtitle": map[string]any{"type": "string"},
					"elements": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"title"},
							"properties": map[string]any{
								"title":    map[string]any{"type": "string"},
								"subtitle": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		},
		{
			Type:         TypeTimePicker,
			ComponentURL: "builtin://" + TypeTimePicker,
			Version:      BuiltinVersion,
			Description:  "A set of time slots the user picks one from.",
			Category:     "interactive",
			Defaults:     map[string]any{"focusable": true},
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"timeslots"},
				"properties": map[string]any{
					"title":          map[string]any{"type": "string"},
					"timeZoneOffset": map[string]any{"type": "integer"},
					"timeslots": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"date"},
							"properties": map[string]any{
								"date":     map[string]any{"type": "string"},
								"duration": map[string]any{"type": "integer"},
							},
						},
					},
				},
			},
		},
	}
}
