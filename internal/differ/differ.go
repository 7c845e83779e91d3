// Package differ computes per-service create/update/delete operation sets
// from the desired, state, and observed views (spec.md §4.6). It is pure:
// no I/O, no plugin calls — callers assemble the three views first.
package differ

import (
	"bytes"
	"sort"

	"github.com/logcraftio/logcraft-cli/internal/domain"
)

// DriftWarning reports a detection present remotely (observed) with no
// local or state-side counterpart: an externally-created artifact the
// engine does not manage unless the caller is running destroy.
type DriftWarning struct {
	Service   string
	Detection string
}

// Views is the per-service D/S/O triple of spec.md §4.6.
type Views struct {
	Service  string
	Desired  map[string][]byte // D
	State    map[string][]byte // S
	Observed map[string][]byte // O
	// Destroy reclassifies drift (∅/∅/present) from a warning into a Delete
	// operation: spec.md §4.6, "no action unless destroy".
	Destroy bool
}

// Diff classifies every detection name across D ∪ S ∪ O for one service,
// returning the operations to perform and any drift warnings. Equality
// between D and O is byte-equality: callers are responsible for handing in
// already-canonicalized bytes on both sides (spec.md §4.6: "equality is by
// normalized canonical form... the plugin is the source of truth for the
// canonicalization of O").
func Diff(v Views) ([]domain.Operation, []DriftWarning) {
	names := make(map[string]bool)
	for n := range v.Desired {
		names[n] = true
	}
	for n := range v.State {
		names[n] = true
	}
	for n := range v.Observed {
		names[n] = true
	}

	var ops []domain.Operation
	var warnings []DriftWarning

	for name := range names {
		d, dOK := v.Desired[name]
		s, sOK := v.State[name]
		o, oOK := v.Observed[name]

		switch {
		case !dOK && !sOK && !oOK:
			// none

		case !dOK && !sOK && oOK:
			if v.Destroy {
				ops = append(ops, domain.Operation{
					Kind: domain.Delete, Service: v.Service, Detection: name, PriorBytes: o,
				})
			} else {
				warnings = append(warnings, DriftWarning{Service: v.Service, Detection: name})
			}

		case !dOK && sOK:
			ops = append(ops, domain.Operation{
				Kind: domain.Delete, Service: v.Service, Detection: name, PriorBytes: s,
			})

		case dOK && !sOK && !oOK:
			ops = append(ops, domain.Operation{
				Kind: domain.Create, Service: v.Service, Detection: name, NewBytes: d,
			})

		case dOK && !sOK && oOK:
			// adopt: reported as create, overwrites remote
			ops = append(ops, domain.Operation{
				Kind: domain.Create, Service: v.Service, Detection: name, NewBytes: d, PriorBytes: o,
			})

		case dOK && sOK && !oOK:
			// repair
			ops = append(ops, domain.Operation{
				Kind: domain.Create, Service: v.Service, Detection: name, NewBytes: d, PriorBytes: s,
			})

		case dOK && sOK && oOK:
			if !bytes.Equal(d, o) {
				ops = append(ops, domain.Operation{
					Kind: domain.Update, Service: v.Service, Detection: name, NewBytes: d, PriorBytes: o,
				})
			}
		}
	}

	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Kind != ops[j].Kind {
			return operationOrder(ops[i].Kind) < operationOrder(ops[j].Kind)
		}
		if ops[i].Service != ops[j].Service {
			return ops[i].Service < ops[j].Service
		}
		return ops[i].Detection < ops[j].Detection
	})
	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Service != warnings[j].Service {
			return warnings[i].Service < warnings[j].Service
		}
		return warnings[i].Detection < warnings[j].Detection
	})

	return ops, warnings
}

// operationOrder encodes the tie-break of spec.md §4.6: deletes before
// creates before updates.
func operationOrder(k domain.OperationKind) int {
	switch k {
	case domain.Delete:
		return 0
	case domain.Create:
		return 1
	case domain.Update:
		return 2
	default:
		return 3
	}
}
