package guard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	errEmpty     = errors.New("response carried no text")
	errMalformed = errors.New("response is not valid JSON")
)

// Decode turns raw model text into a value of the declared shape, substituting the
// fallback on any failure. It is pure: the same raw text always resolves the same way.
func Decode[T any](raw string, spec Spec[T]) Result[T] {
	if strings.TrimSpace(raw) == "" {
		return fallback(spec, OutcomeEmpty, errEmpty)
	}

	doc, ok := firstValid(candidates(raw, spec.Shape))
	if !ok && spec.Repair && spec.Shape != ShapeText {
		doc, ok = repair(ExtractJSON(raw))
	}
	if !ok {
		if spec.Shape == ShapeText {
			return rawText(raw, spec)
		}
		return fallback(spec, OutcomeMalformed, errMalformed)
	}

	switch spec.Shape {
	case ShapeList:
		return decodeList(doc, spec)
	case ShapeText:
		return decodeText(doc, raw, spec)
	default:
		return decodeObject(doc, spec)
	}
}

func firstValid(spans []string) ([]byte, bool) {
	for _, span := range spans {
		b := []byte(span)
		if json.Valid(b) {
			return b, true
		}
	}
	return nil, false
}

func repair(span string) ([]byte, bool) {
	repaired, err := jsonrepair.JSONRepair(span)
	if err != nil {
		return nil, false
	}
	b := []byte(repaired)
	return b, json.Valid(b)
}

func decodeObject[T any](doc []byte, spec Spec[T]) Result[T] {
	if leading(doc) != '{' {
		return fallback(spec, OutcomeShapeMismatch, fmt.Errorf("expected a JSON object, got %s", kind(doc)))
	}
	var value T
	if err := json.Unmarshal(doc, &value); err != nil {
		return fallback(spec, OutcomeShapeMismatch, err)
	}
	return Result[T]{Value: value, Outcome: OutcomeParsed}
}

func decodeList[T any](doc []byte, spec Spec[T]) Result[T] {
	switch leading(doc) {
	case '[':
		var value T
		if err := json.Unmarshal(doc, &value); err != nil {
			return fallback(spec, OutcomeShapeMismatch, err)
		}
		return Result[T]{Value: value, Outcome: OutcomeParsed}
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(doc, &envelope); err != nil {
			return fallback(spec, OutcomeShapeMismatch, err)
		}
		inner, ok := envelope[spec.envelope()]
		if !ok || leading(inner) != '[' {
			return fallback(spec, OutcomeShapeMismatch, fmt.Errorf("expected a JSON array or %q envelope", spec.envelope()))
		}
		var value T
		if err := json.Unmarshal(inner, &value); err != nil {
			return fallback(spec, OutcomeShapeMismatch, err)
		}
		return Result[T]{Value: value, Outcome: OutcomeUnwrapped}
	default:
		return fallback(spec, OutcomeShapeMismatch, fmt.Errorf("expected a JSON array, got %s", kind(doc)))
	}
}

// decodeText accepts a JSON string literal; any other JSON is treated as prose.
func decodeText[T any](doc []byte, raw string, spec Spec[T]) Result[T] {
	var value T
	if leading(doc) == '"' && json.Unmarshal(doc, &value) == nil {
		return Result[T]{Value: value, Outcome: OutcomeParsed}
	}
	return rawText(raw, spec)
}

func rawText[T any](raw string, spec Spec[T]) Result[T] {
	value, ok := any(raw).(T)
	if !ok {
		return fallback(spec, OutcomeMalformed, fmt.Errorf("text shape requires a string value, got %T", spec.Fallback))
	}
	return Result[T]{Value: value, Outcome: OutcomeRawText}
}

func leading(doc []byte) byte {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func kind(doc []byte) string {
	switch leading(doc) {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
