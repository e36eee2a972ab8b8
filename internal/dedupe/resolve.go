package dedupe

import (
	"errors"
	"fmt"

	"github.com/jonathan/marketing-hub/internal/types"
)

// Group resolution errors
var (
	ErrLeadNotInGroup = errors.New("lead is not a member of the group")
	ErrGroupResolved  = errors.New("group is already resolved")
)

// Contains reports whether the group has a member with the given id.
func (g *Group) Contains(id string) bool {
	return g.indexOf(id) >= 0
}

// MergePlan returns the members that merging into the lead with masterID would
// remove, without changing the group.
func (g *Group) MergePlan(masterID string) ([]*types.Lead, error) {
	if g.Resolved {
		return nil, ErrGroupResolved
	}
	if !g.Contains(masterID) {
		return nil, fmt.Errorf("merge group %s: %w", g.ID, ErrLeadNotInGroup)
	}

	removed := make([]*types.Lead, 0, len(g.Leads)-1)
	for _, l := range g.Leads {
		if l.ID != masterID {
			removed = append(removed, l)
		}
	}
	return removed, nil
}

// Merge records master as the surviving lead and marks the group resolved.
// It returns the other members, which the caller is expected to delete from its store.
func (g *Group) Merge(master *types.Lead) ([]*types.Lead, error) {
	if master == nil {
		return nil, fmt.Errorf("merge group %s: %w", g.ID, ErrLeadNotInGroup)
	}
	removed, err := g.MergePlan(master.ID)
	if err != nil {
		return nil, err
	}

	g.Resolved = true
	g.MasterLead = g.Leads[g.indexOf(master.ID)]
	return removed, nil
}

// Remove drops the lead with the given id from the group. discard is true when one
// or fewer members remain, in which case the caller should drop the whole group.
func (g *Group) Remove(id string) (discard bool, err error) {
	i := g.indexOf(id)
	if i < 0 {
		return false, fmt.Errorf("remove %s from group %s: %w", id, g.ID, ErrLeadNotInGroup)
	}

	g.Leads = append(g.Leads[:i:i], g.Leads[i+1:]...)
	return len(g.Leads) <= 1, nil
}

func (g *Group) indexOf(id string) int {
	for i, l := range g.Leads {
		if l.ID == id {
			return i
		}
	}
	return -1
}
