package dedupe

import (
	"testing"

	"github.com/jonathan/marketing-hub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeLeadGroup() *Group {
	return &Group{
		ID:    "group_1",
		Leads: []*types.Lead{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}
}

func TestGroup_Merge(t *testing.T) {
	g := threeLeadGroup()

	removed, err := g.Merge(&types.Lead{ID: "b"})
	require.NoError(t, err)
	assert.True(t, g.Resolved)
	require.NotNil(t, g.MasterLead)
	assert.Equal(t, "b", g.MasterLead.ID)
	assert.Same(t, g.Leads[1], g.MasterLead)

	require.Len(t, removed, 2)
	assert.Equal(t, "a", removed[0].ID)
	assert.Equal(t, "c", removed[1].ID)

	_, err = g.Merge(&types.Lead{ID: "a"})
	assert.ErrorIs(t, err, ErrGroupResolved)
}

func TestGroup_MergeRejectsOutsider(t *testing.T) {
	g := threeLeadGroup()

	_, err := g.Merge(&types.Lead{ID: "zzz"})
	assert.ErrorIs(t, err, ErrLeadNotInGroup)
	_, err = g.Merge(nil)
	assert.ErrorIs(t, err, ErrLeadNotInGroup)
	assert.False(t, g.Resolved)
}

func TestGroup_MergePlanLeavesGroupUntouched(t *testing.T) {
	g := threeLeadGroup()

	removed, err := g.MergePlan("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string{removed[0].ID, removed[1].ID})
	assert.False(t, g.Resolved)
	assert.Nil(t, g.MasterLead)
	assert.Len(t, g.Leads, 3)

	_, err = g.MergePlan("zzz")
	assert.ErrorIs(t, err, ErrLeadNotInGroup)

	g.Resolved = true
	_, err = g.MergePlan("a")
	assert.ErrorIs(t, err, ErrGroupResolved)
}

func TestGroup_Remove(t *testing.T) {
	g := threeLeadGroup()
	original := g.Leads

	discard, err := g.Remove("b")
	require.NoError(t, err)
	assert.False(t, discard)
	assert.Equal(t, []string{"a", "c"}, ids(g))
	assert.Equal(t, "b", original[1].ID, "backing slice of the previous membership is untouched")

	discard, err = g.Remove("a")
	require.NoError(t, err)
	assert.True(t, discard)

	_, err = g.Remove("a")
	assert.ErrorIs(t, err, ErrLeadNotInGroup)
}

func TestGroup_Contains(t *testing.T) {
	g := threeLeadGroup()
	assert.True(t, g.Contains("c"))
	assert.False(t, g.Contains("d"))
}
