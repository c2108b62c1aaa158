package generator

import (
	"regexp"
	"strings"
)

var letterAnswer = regexp.MustCompile(`(?i)^(?:Option\s+)?([A-D])\.?$`)

// NormalizeAnswer maps a model's raw answer onto one of the options. It is
// total: for a non-empty option list it always returns one of the options.
func NormalizeAnswer(raw string, options []string) string {
	answer, _ := MatchAnswer(raw, options)
	return answer
}

// MatchAnswer is NormalizeAnswer that also reports whether the answer was
// recognised. false means the first option was returned as a lossy fallback.
func MatchAnswer(raw string, options []string) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	trimmed := strings.TrimSpace(raw)

	for _, o := range options {
		if strings.TrimSpace(o) == trimmed {
			return o, true
		}
	}

	if m := letterAnswer.FindStringSubmatch(trimmed); m != nil {
		idx := int(strings.ToUpper(m[1])[0] - 'A')
		if idx < len(options) {
			return options[idx], true
		}
	}

	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), trimmed) {
			return o, true
		}
	}

	return options[0], false
}
