package guard

import "strings"

const emptyObject = "{}"

// ExtractJSON recovers a JSON object candidate from a model response that may carry
// markdown fences and prose around the payload. Empty input yields "{}".
func ExtractJSON(text string) (out string) {
	defer func() {
		if recover() != nil {
			out = emptyObject
		}
	}()

	if text == "" {
		return emptyObject
	}

	clean := stripFences(text)
	first := strings.Index(clean, "{")
	last := strings.LastIndex(clean, "}")
	if first != -1 && last != -1 && last > first {
		clean = clean[first : last+1]
	}
	return strings.TrimSpace(clean)
}

func stripFences(text string) string {
	clean := strings.ReplaceAll(text, "```json", "")
	return strings.ReplaceAll(clean, "```", "")
}

// candidates lists the spans the decoder tries, in order. Object and text shapes only
// ever see the ExtractJSON span. List shapes also see the bracket span; whichever
// bracket opens first in the text is tried first.
func candidates(text string, shape Shape) []string {
	primary := ExtractJSON(text)
	if shape != ShapeList {
		return []string{primary}
	}

	clean := stripFences(text)
	open := strings.Index(clean, "[")
	closing := strings.LastIndex(clean, "]")
	if open == -1 || closing <= open {
		return []string{primary}
	}

	span := strings.TrimSpace(clean[open : closing+1])
	if span == primary {
		return []string{primary}
	}
	if brace := strings.Index(clean, "{"); brace == -1 || open < brace {
		return []string{span, primary}
	}
	return []string{primary, span}
}
