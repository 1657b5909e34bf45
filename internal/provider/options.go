package provider

import "encoding/json"

// Option keys understood by every provider.
const (
	OptionMaxTokens      = "max_tokens"
	OptionTemperature    = "temperature"
	OptionTopP           = "top_p"
	OptionStop           = "stop"
	OptionResponseFormat = "response_format"
)

// FloatOption reads a numeric option.
func FloatOption(options map[string]any, key string) (float64, bool) {
	value, ok := options[key]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// IntOption reads an integer option, accepting JSON-decoded floats.
func IntOption(options map[string]any, key string) (int, bool) {
	value, ok := options[key]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// StringSliceOption reads a list of strings.
func StringSliceOption(options map[string]any, key string) ([]string, bool) {
	value, ok := options[key]
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, str)
		}
		return result, true
	}
	return nil, false
}

// MapOption reads a nested object option.
func MapOption(options map[string]any, key string) (map[string]any, bool) {
	if m, ok := options[key].(map[string]any); ok {
		return m, true
	}
	return nil, false
}

// WantsJSON reports whether the caller asked for a JSON object response.
func WantsJSON(options map[string]any) bool {
	format, ok := MapOption(options, OptionResponseFormat)
	return ok && format["type"] == "json_object"
}
