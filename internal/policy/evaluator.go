package policy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"gopkg.in/yaml.v3"
)

// Evaluate runs policies in order against a detection document (decoded from
// YAML bytes), returning every violation encountered. Evaluation stops at
// the first `error`-severity violation (spec.md §4.5: "error aborts further
// evaluation of the detection; warning continues"); violations already
// collected before that point are still returned.
func Evaluate(policies []Policy, detectionBytes []byte, detectionFile string) ([]*domain.PolicyViolationError, error) {
	var doc any
	if err := yaml.Unmarshal(detectionBytes, &doc); err != nil {
		return nil, &domain.ConfigError{Path: detectionFile, Reason: fmt.Sprintf("parse detection: %v", err)}
	}
	doc = normalize(doc)

	var violations []*domain.PolicyViolationError
	for _, p := range policies {
		v := evaluateOne(p, doc, detectionFile)
		if v == nil {
			continue
		}
		violations = append(violations, v)
		if v.Severity == domain.SeverityError {
			break
		}
	}
	return violations, nil
}

// normalize deep-copies the map[string]any and []any nodes yaml.v3 produces
// for mapping and sequence nodes. Any other node, including a map[any]any,
// is returned as-is; resolve handles map[any]any itself.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

func evaluateOne(p Policy, doc any, detectionFile string) *domain.PolicyViolationError {
	value, exists := resolve(doc, p.Field)

	var failed bool
	switch p.CheckKind {
	case CheckExistence:
		failed = !exists
	case CheckAbsence:
		failed = exists
	case CheckPattern:
		failed = !checkPattern(p, value, exists)
	case CheckConstraint:
		failed = !checkConstraint(p, value, exists)
	default:
		failed = true
	}

	if !failed {
		return nil
	}

	severity := domain.SeverityWarning
	if p.Severity == SeverityError {
		severity = domain.SeverityError
	}

	return &domain.PolicyViolationError{
		Severity:   severity,
		PolicyFile: p.sourceFile,
		Detection:  detectionFile,
		Message:    renderMessage(p),
	}
}

func renderMessage(p Policy) string {
	msg := p.Message
	if msg == "" {
		msg = fmt.Sprintf("%s check failed for %s", p.CheckKind, p.Field)
	}
	return strings.ReplaceAll(msg, "${fieldName}", p.Field)
}

func checkPattern(p Policy, value any, exists bool) bool {
	if !exists {
		return false
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	re, err := regexp.Compile(patternSource(p))
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func patternSource(p Policy) string {
	if p.IgnoreCase {
		return "(?i)" + p.Regex
	}
	return p.Regex
}

func checkConstraint(p Policy, value any, exists bool) bool {
	if !exists {
		return false
	}

	length, hasLength := elementCount(value)
	if hasLength {
		if p.Validation.MinLength != nil && length < *p.Validation.MinLength {
			return false
		}
		if p.Validation.MaxLength != nil && length > *p.Validation.MaxLength {
			return false
		}
	}

	if len(p.Validation.Values) > 0 {
		s, ok := value.(string)
		if !ok {
			return false
		}
		return containsValue(p.Validation.Values, s, p.IgnoreCase)
	}

	return true
}

func elementCount(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v), true
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	default:
		return 0, false
	}
}

func containsValue(values []string, s string, ignoreCase bool) bool {
	for _, v := range values {
		if ignoreCase {
			if strings.EqualFold(v, s) {
				return true
			}
		} else if v == s {
			return true
		}
	}
	return false
}
