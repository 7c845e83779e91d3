// Package state implements the two state-store backends of spec.md §4.3: a
// local JSON file guarded by an advisory OS-level lock, and an HTTP backend
// compatible with the widely-deployed Terraform/GitLab remote-state wire
// protocol.
package state

import (
	"encoding/base64"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/logcraftio/logcraft-cli/internal/domain"
)

// documentVersion is the fixed state-document schema version (spec.md §6).
const documentVersion = 4

// attributes carries the opaque deployed payload for one instance of a
// resource, matching spec.md §6's `instances[].attributes.payload`. Extra
// preserves any sibling attribute fields a Terraform/GitLab-shaped document
// carries (e.g. other provider attributes) that this engine never reads,
// so a write never drops them (spec.md §6: "unknown fields are preserved
// on round-trip").
type attributes struct {
	Payload string                     `json:"payload"` // base64 of the deployed bytes
	Extra   map[string]json.RawMessage `json:"-"`
}

// instance is one deployed artifact under a resource. The engine only ever
// produces a single instance per (service, detection); the array shape is
// part of the wire format this backend is compatible with, not a feature
// this engine exercises beyond index 0. Extra preserves unknown sibling
// fields (e.g. `schema_version`, `private`, `sensitive_attributes`).
type instance struct {
	Attributes attributes                 `json:"attributes"`
	Extra      map[string]json.RawMessage `json:"-"`
}

// resource is one (service, detection) deployment record as it appears in
// the document's resources array: `{module: <service>, name: <detection>,
// instances: [...]}` (spec.md §6). Extra preserves unknown sibling fields
// (e.g. `mode`, `type`, `provider`, `schema_version`).
type resource struct {
	Module    string                     `json:"module"`
	Name      string                     `json:"name"`
	Instances []instance                 `json:"instances"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// Document is the on-wire/on-disk state document of spec.md §4.3/§6:
// `{version: 4, serial, lineage, outputs: {}, resources: [...]}`. Outputs is
// round-tripped as raw JSON, and Extra carries every other top-level field
// (e.g. `terraform_version`, `check_results`) untouched, so the store never
// drops a field it doesn't understand, mirroring the teacher's
// permissive-on-the-rest-of-the-document approach to config parsing.
type Document struct {
	Version   int                        `json:"version"`
	Serial    int                        `json:"serial"`
	Lineage   string                     `json:"lineage"`
	Outputs   json.RawMessage            `json:"outputs,omitempty"`
	Resources []resource                 `json:"resources"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// knownDocumentFields are the top-level keys Document decodes structurally;
// everything else is captured in Extra.
var knownDocumentFields = map[string]bool{
	"version": true, "serial": true, "lineage": true, "outputs": true, "resources": true,
}

var knownResourceFields = map[string]bool{
	"module": true, "name": true, "instances": true,
}

var knownInstanceFields = map[string]bool{
	"attributes": true,
}

var knownAttributesFields = map[string]bool{
	"payload": true,
}

// UnmarshalJSON decodes the known fields structurally and preserves every
// other top-level key in Extra (spec.md §6 round-trip invariant).
func (d *Document) UnmarshalJSON(data []byte) error {
	type alias Document
	if err := json.Unmarshal(data, (*alias)(d)); err != nil {
		return err
	}
	return unmarshalExtra(data, knownDocumentFields, &d.Extra)
}

// MarshalJSON re-merges Extra's preserved fields back alongside the known
// ones.
func (d *Document) MarshalJSON() ([]byte, error) {
	type alias Document
	return marshalWithExtra((*alias)(d), d.Extra)
}

func (r *resource) UnmarshalJSON(data []byte) error {
	type alias resource
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	return unmarshalExtra(data, knownResourceFields, &r.Extra)
}

func (r resource) MarshalJSON() ([]byte, error) {
	type alias resource
	return marshalWithExtra(alias(r), r.Extra)
}

func (i *instance) UnmarshalJSON(data []byte) error {
	type alias instance
	if err := json.Unmarshal(data, (*alias)(i)); err != nil {
		return err
	}
	return unmarshalExtra(data, knownInstanceFields, &i.Extra)
}

func (i instance) MarshalJSON() ([]byte, error) {
	type alias instance
	return marshalWithExtra(alias(i), i.Extra)
}

func (a *attributes) UnmarshalJSON(data []byte) error {
	type alias attributes
	if err := json.Unmarshal(data, (*alias)(a)); err != nil {
		return err
	}
	return unmarshalExtra(data, knownAttributesFields, &a.Extra)
}

func (a attributes) MarshalJSON() ([]byte, error) {
	type alias attributes
	return marshalWithExtra(alias(a), a.Extra)
}

// unmarshalExtra captures every key of data not present in known into *extra.
func unmarshalExtra(data []byte, known map[string]bool, extra *map[string]json.RawMessage) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !known[k] {
			out[k] = v
		}
	}
	if len(out) > 0 {
		*extra = out
	}
	return nil
}

// marshalWithExtra marshals v structurally, then merges extra's preserved
// keys back in (known fields take precedence on collision).
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// NewDocument returns an empty document with a freshly minted lineage.
func NewDocument() *Document {
	return &Document{
		Version: documentVersion,
		Lineage: uuid.NewString(),
		Outputs: json.RawMessage(`{}`),
	}
}

// ToState decodes the document into the domain's in-memory State.
func (d *Document) ToState() (*domain.State, error) {
	st := domain.NewState()
	st.Serial = d.Serial
	st.Lineage = d.Lineage
	for _, r := range d.Resources {
		if len(r.Instances) == 0 {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(r.Instances[0].Attributes.Payload)
		if err != nil {
			return nil, &domain.StateIOError{Op: "decode", Reason: err.Error()}
		}
		st.Set(r.Module, r.Name, decoded)
	}
	return st, nil
}

// FromState encodes the domain State into a document, assigning a lineage on
// first write and always bumping serial by one relative to the prior
// document passed as base (nil for a brand-new state).
func FromState(st *domain.State, base *Document) *Document {
	lineage := st.Lineage
	if base != nil && base.Lineage != "" {
		lineage = base.Lineage
	}
	if lineage == "" {
		lineage = uuid.NewString()
	}
	serial := st.Serial
	if base != nil {
		serial = base.Serial + 1
	}

	services := make([]string, 0, len(st.Services))
	for svc := range st.Services {
		services = append(services, svc)
	}
	sort.Strings(services)

	// Index the prior document's resources by (module, name) so unknown
	// fields on an unchanged resource/instance/attributes survive the
	// rewrite (spec.md §6 round-trip invariant).
	priorResources := make(map[[2]string]resource)
	if base != nil {
		for _, r := range base.Resources {
			priorResources[[2]string{r.Module, r.Name}] = r
		}
	}

	resources := make([]resource, 0)
	for _, svc := range services {
		names := st.Names(svc)
		detections := make([]string, 0, len(names))
		for name := range names {
			detections = append(detections, name)
		}
		sort.Strings(detections)
		for _, name := range detections {
			prior, hadPrior := priorResources[[2]string{svc, name}]

			attrs := attributes{Payload: base64.StdEncoding.EncodeToString(names[name])}
			inst := instance{Attributes: attrs}
			if hadPrior && len(prior.Instances) > 0 {
				inst.Extra = prior.Instances[0].Extra
				attrs.Extra = prior.Instances[0].Attributes.Extra
				inst.Attributes = attrs
			}

			r := resource{Module: svc, Name: name, Instances: []instance{inst}}
			if hadPrior {
				r.Extra = prior.Extra
			}
			resources = append(resources, r)
		}
	}

	outputs := json.RawMessage(`{}`)
	var extra map[string]json.RawMessage
	if base != nil {
		if len(base.Outputs) > 0 {
			outputs = base.Outputs
		}
		extra = base.Extra
	}

	return &Document{
		Version:   documentVersion,
		Serial:    serial,
		Lineage:   lineage,
		Outputs:   outputs,
		Resources: resources,
		Extra:     extra,
	}
}
