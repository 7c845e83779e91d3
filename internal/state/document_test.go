package state

import (
	"encoding/json"
	"testing"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument_AssignsLineage(t *testing.T) {
	doc := NewDocument()
	assert.Equal(t, documentVersion, doc.Version)
	assert.NotEmpty(t, doc.Lineage)
	assert.Equal(t, 0, doc.Serial)
}

func TestFromState_FirstWriteAssignsLineageAndSerialOne(t *testing.T) {
	st := domain.NewState()
	st.Set("s1", "r1", []byte("B1"))

	doc := FromState(st, NewDocument())
	assert.Equal(t, 1, doc.Serial)
	assert.NotEmpty(t, doc.Lineage)
	require.Len(t, doc.Resources, 1)
	assert.Equal(t, "s1", doc.Resources[0].Module)
	assert.Equal(t, "r1", doc.Resources[0].Name)
}

func TestFromState_SubsequentWriteBumpsSerialPreservesLineage(t *testing.T) {
	base := NewDocument()
	base.Serial = 5
	base.Lineage = "lineage-xyz"

	st := domain.NewState()
	st.Set("s1", "r1", []byte("B1"))

	doc := FromState(st, base)
	assert.Equal(t, 6, doc.Serial)
	assert.Equal(t, "lineage-xyz", doc.Lineage)
}

func TestDocument_ToState_DecodesPayload(t *testing.T) {
	st := domain.NewState()
	st.Set("s1", "r1", []byte("hello"))
	doc := FromState(st, NewDocument())

	decoded, err := doc.ToState()
	require.NoError(t, err)
	b, ok := decoded.Get("s1", "r1")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), b)
}

func TestFromState_DeterministicResourceOrder(t *testing.T) {
	st := domain.NewState()
	st.Set("zsvc", "b", []byte("1"))
	st.Set("asvc", "b", []byte("2"))
	st.Set("asvc", "a", []byte("3"))

	doc := FromState(st, NewDocument())
	require.Len(t, doc.Resources, 3)
	assert.Equal(t, "asvc", doc.Resources[0].Module)
	assert.Equal(t, "a", doc.Resources[0].Name)
	assert.Equal(t, "asvc", doc.Resources[1].Module)
	assert.Equal(t, "b", doc.Resources[1].Name)
	assert.Equal(t, "zsvc", doc.Resources[2].Module)
}

func TestFromState_PreservesOutputsFromBase(t *testing.T) {
	base := NewDocument()
	base.Outputs = []byte(`{"foo":"bar"}`)

	doc := FromState(domain.NewState(), base)
	assert.JSONEq(t, `{"foo":"bar"}`, string(doc.Outputs))
}

// TestDocument_RoundTrip_PreservesUnknownFields covers spec.md §6 ("Unknown
// fields are preserved on round-trip") and §8 invariant #7 against a
// Terraform/GitLab-shaped document carrying fields this engine never reads,
// at every nesting level: top-level, resource, instance, and attributes.
func TestDocument_RoundTrip_PreservesUnknownFields(t *testing.T) {
	input := []byte(`{
		"version": 4,
		"serial": 3,
		"lineage": "lineage-abc",
		"terraform_version": "1.7.0",
		"check_results": null,
		"outputs": {},
		"resources": [
			{
				"module": "s1",
				"name": "r1",
				"mode": "managed",
				"type": "logcraft_detection",
				"provider": "provider[\"registry.example/logcraft\"]",
				"schema_version": 0,
				"instances": [
					{
						"schema_version": 0,
						"private": "bnVsbA==",
						"sensitive_attributes": [],
						"dependencies": ["s1.other"],
						"attributes": {
							"payload": "aGVsbG8=",
							"id": "abc123",
							"region": "us-east-1"
						}
					}
				]
			}
		]
	}`)

	var doc Document
	require.NoError(t, json.Unmarshal(input, &doc))

	out, err := json.Marshal(&doc)
	require.NoError(t, err)

	assert.JSONEq(t, string(input), string(out))
}

// TestFromState_PreservesUnknownResourceFieldsForUnchangedDetection covers
// the write path specifically: a resource/instance/attributes carrying
// foreign fields survives a commit that doesn't touch that (service,
// detection) pair.
func TestFromState_PreservesUnknownResourceFieldsForUnchangedDetection(t *testing.T) {
	base := NewDocument()
	require.NoError(t, json.Unmarshal([]byte(`{
		"version": 4, "serial": 1, "lineage": "lineage-xyz", "outputs": {},
		"resources": [
			{
				"module": "s1", "name": "r1", "mode": "managed", "type": "logcraft_detection",
				"instances": [
					{
						"private": "opaque",
						"attributes": {"payload": "aGVsbG8=", "id": "abc123"}
					}
				]
			}
		]
	}`), base))

	st := domain.NewState()
	st.Set("s1", "r1", []byte("hello"))

	doc := FromState(st, base)
	out, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	resources := decoded["resources"].([]any)
	require.Len(t, resources, 1)
	r := resources[0].(map[string]any)
	assert.Equal(t, "managed", r["mode"])
	assert.Equal(t, "logcraft_detection", r["type"])

	instances := r["instances"].([]any)
	require.Len(t, instances, 1)
	inst := instances[0].(map[string]any)
	assert.Equal(t, "opaque", inst["private"])

	attrs := inst["attributes"].(map[string]any)
	assert.Equal(t, "abc123", attrs["id"])
}
