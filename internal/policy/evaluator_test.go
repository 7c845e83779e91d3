package policy

import (
	"testing"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDetection = `
title: Failed login burst
severity: high
tags:
  - authentication
  - brute-force
query: "index=auth action=failure | stats count by user"
`

func policyFrom(field string, check Check, severity Severity) Policy {
	return Policy{Field: field, CheckKind: check, Severity: severity, sourceFile: "p.yaml"}
}

func TestEvaluate_Existence(t *testing.T) {
	policies := []Policy{policyFrom("/title", CheckExistence, SeverityError)}
	violations, err := Evaluate(policies, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEvaluate_ExistenceFailsWhenFieldMissing(t *testing.T) {
	policies := []Policy{policyFrom("/owner", CheckExistence, SeverityError)}
	violations, err := Evaluate(policies, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, domain.SeverityError, violations[0].Severity)
	assert.Equal(t, "r1.yaml", violations[0].Detection)
}

func TestEvaluate_Absence(t *testing.T) {
	// Invariant 8: detections lacking field f pass an absence check on f;
	// those containing f fail.
	passing := []Policy{policyFrom("/owner", CheckAbsence, SeverityError)}
	violations, err := Evaluate(passing, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	assert.Empty(t, violations)

	failing := []Policy{policyFrom("/title", CheckAbsence, SeverityError)}
	violations, err = Evaluate(failing, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 1)
}

func TestEvaluate_Pattern(t *testing.T) {
	p := policyFrom("/severity", CheckPattern, SeverityWarning)
	p.Regex = "^(low|medium|high|critical)$"
	violations, err := Evaluate([]Policy{p}, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	assert.Empty(t, violations)

	p.Regex = "^critical$"
	violations, err = Evaluate([]Policy{p}, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, domain.SeverityWarning, violations[0].Severity)
}

func TestEvaluate_Pattern_IgnoreCase(t *testing.T) {
	p := policyFrom("/severity", CheckPattern, SeverityError)
	p.Regex = "^HIGH$"
	p.IgnoreCase = true
	violations, err := Evaluate([]Policy{p}, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEvaluate_ConstraintValues(t *testing.T) {
	p := policyFrom("/severity", CheckConstraint, SeverityError)
	p.Validation.Values = []string{"low", "medium"}
	violations, err := Evaluate([]Policy{p}, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 1, "severity 'high' is not in the allowed values")
}

func TestEvaluate_ConstraintValues_IgnoreCase(t *testing.T) {
	p := policyFrom("/severity", CheckConstraint, SeverityError)
	p.Validation.Values = []string{"HIGH"}
	p.IgnoreCase = true
	violations, err := Evaluate([]Policy{p}, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEvaluate_ConstraintLength_Array(t *testing.T) {
	p := policyFrom("/tags", CheckConstraint, SeverityError)
	minLen := 3
	p.Validation.MinLength = &minLen
	violations, err := Evaluate([]Policy{p}, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 1, "tags has only 2 elements")
}

func TestEvaluate_ConstraintLength_String(t *testing.T) {
	p := policyFrom("/title", CheckConstraint, SeverityError)
	maxLen := 5
	p.Validation.MaxLength = &maxLen
	violations, err := Evaluate([]Policy{p}, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 1)
}

func TestEvaluate_ErrorSeverityShortCircuits(t *testing.T) {
	policies := []Policy{
		policyFrom("/owner", CheckExistence, SeverityError), // fails, aborts
		policyFrom("/missing2", CheckExistence, SeverityError),
	}
	violations, err := Evaluate(policies, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 1, "evaluation stops at the first error-severity violation")
}

func TestEvaluate_WarningSeverityContinues(t *testing.T) {
	policies := []Policy{
		policyFrom("/owner", CheckExistence, SeverityWarning),
		policyFrom("/maintainer", CheckExistence, SeverityWarning),
	}
	violations, err := Evaluate(policies, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 2, "warnings do not abort evaluation of later policies")
}

func TestEvaluate_MessageTemplateSubstitution(t *testing.T) {
	p := policyFrom("/owner", CheckExistence, SeverityError)
	p.Message = "${fieldName} is required"
	violations, err := Evaluate([]Policy{p}, []byte(sampleDetection), "r1.yaml")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "/owner is required", violations[0].Message)
}

func TestEvaluate_BadYAMLReturnsConfigError(t *testing.T) {
	_, err := Evaluate(nil, []byte("{not: valid: yaml: ["), "r1.yaml")
	require.Error(t, err)
	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPluginSpecification_IsSatisfiedBy(t *testing.T) {
	spec := NewPluginSpecification([]Policy{
		policyFrom("/owner", CheckExistence, SeverityError),
	}, "splunk")

	violations, ok := spec.IsSatisfiedBy([]byte(sampleDetection), "r1.yaml")
	assert.False(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, "r1.yaml", violations[0].Detection)
}
