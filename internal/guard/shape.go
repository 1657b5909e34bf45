package guard

// Shape declares the structure a call site expects back from the model.
type Shape int

const (
	// ShapeObject expects a single JSON record.
	ShapeObject Shape = iota
	// ShapeList expects a JSON array, possibly wrapped in an envelope key.
	ShapeList
	// ShapeText expects free text; unparseable responses are returned verbatim.
	ShapeText
)

// DefaultEnvelope is the wrapper key some responses use to nest an expected list.
const DefaultEnvelope = "questions"

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeList:
		return "list"
	case ShapeText:
		return "text"
	default:
		return "unknown"
	}
}

// Spec is the per-call contract: what shape is expected and what to return instead.
type Spec[T any] struct {
	// Name labels the operation in logs and stats.
	Name     string
	Shape    Shape
	Fallback T
	// Envelope overrides DefaultEnvelope for list shapes.
	Envelope string
	// Repair runs jsonrepair over malformed object/list payloads before giving up.
	Repair bool
	// CacheKey enables response caching when the guard has a cache. Empty disables it.
	CacheKey string
}

func (s Spec[T]) envelope() string {
	if s.Envelope != "" {
		return s.Envelope
	}
	return DefaultEnvelope
}

func (s Spec[T]) cacheKey() string {
	if s.CacheKey == "" {
		return ""
	}
	return s.Name + "\x00" + s.CacheKey
}

// Outcome records how a call resolved.
type Outcome string

const (
	OutcomeParsed        Outcome = "parsed"
	OutcomeUnwrapped     Outcome = "unwrapped"
	OutcomeRawText       Outcome = "raw_text"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeCanceled      Outcome = "canceled"
	OutcomeCallFailed    Outcome = "call_failed"
	OutcomeEmpty         Outcome = "empty"
	OutcomeMalformed     Outcome = "malformed"
	OutcomeShapeMismatch Outcome = "shape_mismatch"
)

// IsFallback reports whether the outcome substituted the fallback value.
func (o Outcome) IsFallback() bool {
	switch o {
	case OutcomeParsed, OutcomeUnwrapped, OutcomeRawText:
		return false
	default:
		return true
	}
}

// Result carries the resolved value and how it was obtained.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	// Err holds the cause when the fallback was substituted.
	Err error
}

func fallback[T any](spec Spec[T], outcome Outcome, err error) Result[T] {
	return Result[T]{Value: spec.Fallback, Outcome: outcome, Err: err}
}
