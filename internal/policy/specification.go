package policy

import "github.com/logcraftio/logcraft-cli/internal/domain"

// Specification is a single pass/fail verdict over a detection document,
// with any violations it produced along the way. Ported from the
// composable predicate shape used elsewhere in this codebase's ancestry for
// combining independent checks into one verdict.
type Specification interface {
	IsSatisfiedBy(detectionBytes []byte, detectionFile string) ([]*domain.PolicyViolationError, bool)
}

// pluginSpecification evaluates one plugin's policy set against a
// detection document.
type pluginSpecification struct {
	policies []Policy
	plugin   string
}

// NewPluginSpecification returns a Specification evaluating policies loaded
// for one plugin (spec.md §4.5: "applied to every detection of that
// plugin"). plugin names the owning plugin, used only for context in the
// parse-failure path below.
func NewPluginSpecification(policies []Policy, plugin string) Specification {
	return &pluginSpecification{policies: policies, plugin: plugin}
}

func (s *pluginSpecification) IsSatisfiedBy(detectionBytes []byte, detectionFile string) ([]*domain.PolicyViolationError, bool) {
	violations, err := Evaluate(s.policies, detectionBytes, detectionFile)
	if err != nil {
		return []*domain.PolicyViolationError{{
			Severity:   domain.SeverityError,
			PolicyFile: s.plugin,
			Detection:  detectionFile,
			Message:    err.Error(),
		}}, false
	}
	return violations, !hasErrorSeverity(violations)
}

func hasErrorSeverity(violations []*domain.PolicyViolationError) bool {
	for _, v := range violations {
		if v.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}
