package livechat

import (
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

// Template tags carried in the "templateType" field of interactive payloads.
const (
	TemplateListPicker = "ListPicker"
	TemplateTimePicker = "TimePicker"
)

// Component types produced for interactive templates.
const (
	ComponentText       = "text"
	ComponentListPicker = "list-picker"
	ComponentTimePicker = "time-picker"
)

// ListElement is one selectable entry of a list picker.
type ListElement struct {
	Title     string `mapstructure:"title"`
	Subtitle  string `mapstructure:"subtitle"`
	ImageType string `mapstructure:"imageType"`
	ImageData string `mapstructure:"imageData"`
}

// ListPicker is the content block of a ListPicker template.
type ListPicker struct {
	Title     string        `mapstructure:"title"`
	Subtitle  string        `mapstructure:"subtitle"`
	ImageType string        `mapstructure:"imageType"`
	ImageData string        `mapstructure:"imageData"`
	Elements  []ListElement `mapstructure:"elements"`
}

// TimeSlot is one selectable slot of a time picker.
type TimeSlot struct {
	Date     string `mapstructure:"date"`
	Duration int    `mapstructure:"duration"`
}

// Location is the optional place attached to a time picker.
type Location struct {
	Title     string  `mapstructure:"title"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Radius    float64 `mapstructure:"radius"`
}

// TimePicker is the content block of a TimePicker template.
type TimePicker struct {
	Title          string     `mapstructure:"title"`
	Subtitle       string     `mapstructure:"subtitle"`
	TimeZoneOffset int        `mapstructure:"timeZoneOffset"`
	Location       *Location  `mapstructure:"location"`
	TimeSlots      []TimeSlot `mapstructure:"timeslots"`
}

// template is a recognized interactive payload.
type template struct {
	tag           string
	title         string
	subtitle      string
	componentType string
	props         map[string]any
}

// parseTemplate recognizes an interactive payload in content.
// It reports false for anything that is not a JSON object with a known templateType.
func parseTemplate(content string) (template, bool) {
	if !gjson.Valid(content) {
		return template{}, false
	}
	root := gjson.Parse(content)
	if !root.IsObject() {
		return template{}, false
	}

	tag := root.Get("templateType").String()
	body, ok := root.Get("data.content").Value().(map[string]any)
	if !ok {
		return template{}, false
	}

	switch tag {
	case TemplateListPicker:
		var lp ListPicker
		if err := decode(body, &lp); err != nil {
			return template{}, false
		}
		return template{
			tag:           tag,
			title:         lp.Title,
			subtitle:      lp.Subtitle,
			componentType: ComponentListPicker,
			props:         listPickerProps(lp),
		}, true

	case TemplateTimePicker:
		var tp TimePicker
		if err := decode(body, &tp); err != nil {
			return template{}, false
		}
		return template{
			tag:           tag,
			title:         tp.Title,
			subtitle:      tp.Subtitle,
			componentType: ComponentTimePicker,
			props:         timePickerProps(tp),
		}, true
	}
	return template{}, false
}

func decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func listPickerProps(lp ListPicker) map[string]any {
	elements := make([]map[string]any, 0, len(lp.Elements))
	for _, e := range lp.Elements {
		el := map[string]any{"title": e.Title}
		if e.Subtitle != "" {
			el["subtitle"] = e.Subtitle
		}
		if e.ImageData != "" {
			el["imageType"] = e.ImageType
			el["imageData"] = e.ImageData
		}
		elements = append(elements, el)
	}
	props := map[string]any{
		"templateType": TemplateListPicker,
		"title":        lp.Title,
		"elements":     elements,
	}
	if lp.Subtitle != "" {
		props["subtitle"] = lp.Subtitle
	}
	if lp.ImageData != "" {
		props["imageType"] = lp.ImageType
		props["imageData"] = lp.ImageData
	}
	return props
}

func timePickerProps(tp TimePicker) map[string]any {
	slots := make([]map[string]any, 0, len(tp.TimeSlots))
	for _, s := range tp.TimeSlots {
		slots = append(slots, map[string]any{"date": s.Date, "duration": s.Duration})
	}
	props := map[string]any{
		"templateType":   TemplateTimePicker,
		"title":          tp.Title,
		"timeslots":      slots,
		"timeZoneOffset": tp.TimeZoneOffset,
	}
	if tp.Subtitle != "" {
		props["subtitle"] = tp.Subtitle
	}
	if tp.Location != nil {
		props["location"] = map[string]any{
			"title":     tp.Location.Title,
			"latitude":  tp.Location.Latitude,
			"longitude": tp.Location.Longitude,
			"radius":    tp.Location.Radius,
		}
	}
	return props
}
