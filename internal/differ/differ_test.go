package differ

import (
	"testing"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_ScenarioA_Create(t *testing.T) {
	ops, warnings := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{"r1": []byte("B1")},
		State:    map[string][]byte{},
		Observed: map[string][]byte{},
	})

	require.Len(t, ops, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, domain.Create, ops[0].Kind)
	assert.Equal(t, "r1", ops[0].Detection)
	assert.Equal(t, []byte("B1"), ops[0].NewBytes)
}

func TestDiff_ScenarioB_Update(t *testing.T) {
	ops, _ := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{"r1": []byte("B2")},
		State:    map[string][]byte{"r1": []byte("B1")},
		Observed: map[string][]byte{"r1": []byte("B1")},
	})

	require.Len(t, ops, 1)
	assert.Equal(t, domain.Update, ops[0].Kind)
	assert.Equal(t, []byte("B2"), ops[0].NewBytes)
	assert.Equal(t, []byte("B1"), ops[0].PriorBytes)
}

func TestDiff_ScenarioC_Delete(t *testing.T) {
	ops, _ := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{},
		State:    map[string][]byte{"r1": []byte("B2")},
		Observed: map[string][]byte{"r1": []byte("B2")},
	})

	require.Len(t, ops, 1)
	assert.Equal(t, domain.Delete, ops[0].Kind)
	assert.Equal(t, []byte("B2"), ops[0].PriorBytes)
}

func TestDiff_ScenarioD_RepairWhenObservedMissing(t *testing.T) {
	ops, warnings := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{"r1": []byte("B1")},
		State:    map[string][]byte{"r1": []byte("B1")},
		Observed: map[string][]byte{},
	})

	require.Len(t, ops, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, domain.Create, ops[0].Kind, "repair is reported as create")
}

func TestDiff_StateOnly_NoRepairWhenObservedMirrorsState(t *testing.T) {
	// --state-only sets O := S, so the repair row (O absent) never triggers.
	ops, _ := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{"r1": []byte("B1")},
		State:    map[string][]byte{"r1": []byte("B1")},
		Observed: map[string][]byte{"r1": []byte("B1")},
	})
	assert.Empty(t, ops)
}

func TestDiff_NoChangeWhenDesiredMatchesObserved(t *testing.T) {
	ops, _ := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{"r1": []byte("B1")},
		State:    map[string][]byte{"r1": []byte("B1")},
		Observed: map[string][]byte{"r1": []byte("B1")},
	})
	assert.Empty(t, ops)
}

func TestDiff_Adopt_CreateOverwritesExternalResource(t *testing.T) {
	ops, _ := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{"r1": []byte("B1")},
		State:    map[string][]byte{},
		Observed: map[string][]byte{"r1": []byte("external")},
	})
	require.Len(t, ops, 1)
	assert.Equal(t, domain.Create, ops[0].Kind)
	assert.Equal(t, []byte("B1"), ops[0].NewBytes)
	assert.Equal(t, []byte("external"), ops[0].PriorBytes)
}

func TestDiff_DriftWarning_WhenNotDestroy(t *testing.T) {
	ops, warnings := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{},
		State:    map[string][]byte{},
		Observed: map[string][]byte{"r1": []byte("external")},
	})
	assert.Empty(t, ops)
	require.Len(t, warnings, 1)
	assert.Equal(t, "r1", warnings[0].Detection)
}

func TestDiff_Destroy_ReclassifiesDriftAsDelete(t *testing.T) {
	ops, warnings := Diff(Views{
		Service:  "s1",
		Desired:  map[string][]byte{},
		State:    map[string][]byte{},
		Observed: map[string][]byte{"r1": []byte("external")},
		Destroy:  true,
	})
	assert.Empty(t, warnings)
	require.Len(t, ops, 1)
	assert.Equal(t, domain.Delete, ops[0].Kind)
	assert.Equal(t, []byte("external"), ops[0].PriorBytes)
}

func TestDiff_NoneWhenAllAbsent(t *testing.T) {
	ops, warnings := Diff(Views{Service: "s1", Desired: map[string][]byte{}, State: map[string][]byte{}, Observed: map[string][]byte{}})
	assert.Empty(t, ops)
	assert.Empty(t, warnings)
}

func TestDiff_ScenarioF_PartialFailureOrdering(t *testing.T) {
	// Two creates and a delete in one batch: deletes sort before creates,
	// then lexicographically by detection name (spec.md §4.6 tie-break).
	ops, _ := Diff(Views{
		Service: "s1",
		Desired: map[string][]byte{"r2": []byte("B2"), "r1": []byte("B1")},
		State:   map[string][]byte{"r3": []byte("B3")},
		Observed: map[string][]byte{"r3": []byte("B3")},
	})

	require.Len(t, ops, 3)
	assert.Equal(t, domain.Delete, ops[0].Kind)
	assert.Equal(t, "r3", ops[0].Detection)
	assert.Equal(t, domain.Create, ops[1].Kind)
	assert.Equal(t, "r1", ops[1].Detection)
	assert.Equal(t, domain.Create, ops[2].Kind)
	assert.Equal(t, "r2", ops[2].Detection)
}

func TestDiff_TieBreak_DeletesBeforeCreatesBeforeUpdates(t *testing.T) {
	ops, _ := Diff(Views{
		Service: "s1",
		Desired: map[string][]byte{"update-me": []byte("new"), "create-me": []byte("new")},
		State:   map[string][]byte{"delete-me": []byte("x"), "update-me": []byte("old")},
		Observed: map[string][]byte{
			"delete-me": []byte("x"),
			"update-me": []byte("old"),
		},
	})

	require.Len(t, ops, 3)
	assert.Equal(t, domain.Delete, ops[0].Kind)
	assert.Equal(t, domain.Create, ops[1].Kind)
	assert.Equal(t, domain.Update, ops[2].Kind)
}
