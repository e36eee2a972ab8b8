package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/marketing-hub/internal/dedupe"
)

// scanResult is the latest duplicate scan run by one user.
type scanResult struct {
	Groups       []*dedupe.Group `json:"groups"`
	LeadsScanned int             `json:"total_leads_scanned"`
	ScannedAt    time.Time       `json:"scanned_at"`
}

// scanRegistry keeps the latest scan per user so its groups can be resolved
// by later requests. Groups are only touched while mu is held.
type scanRegistry struct {
	mu    sync.Mutex
	scans map[uuid.UUID]*scanResult
}

func newScanRegistry() *scanRegistry {
	return &scanRegistry{scans: make(map[uuid.UUID]*scanResult)}
}

// put replaces the user's scan.
func (r *scanRegistry) put(userID uuid.UUID, scan *scanResult) {
	r.mu.Lock()
	r.scans[userID] = scan
	r.mu.Unlock()
}

// snapshot returns the user's scan filtered by match type, or nil when the
// user has not scanned. An empty matchType keeps every group.
func (r *scanRegistry) snapshot(userID uuid.UUID, matchType dedupe.MatchType) *scanResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	scan, ok := r.scans[userID]
	if !ok {
		return nil
	}
	out := &scanResult{
		Groups:       make([]*dedupe.Group, 0, len(scan.Groups)),
		LeadsScanned: scan.LeadsScanned,
		ScannedAt:    scan.ScannedAt,
	}
	for _, g := range scan.Groups {
		if matchType != "" && g.MatchType != matchType {
			continue
		}
		c := *g
		c.Leads = append(c.Leads[:0:0], g.Leads...)
		c.Reasons = append(c.Reasons[:0:0], g.Reasons...)
		out.Groups = append(out.Groups, &c)
	}
	return out
}

// withGroup runs fn on the named group while holding the registry lock.
// When fn reports discard the group is dropped from the scan.
func (r *scanRegistry) withGroup(userID uuid.UUID, groupID string, fn func(g *dedupe.Group) (discard bool, err error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	scan, ok := r.scans[userID]
	if !ok {
		return &ErrNotFound{Resource: "duplicate group", ID: groupID}
	}
	for i, g := range scan.Groups {
		if g.ID != groupID {
			continue
		}
		discard, err := fn(g)
		if err != nil {
			return err
		}
		if discard {
			scan.Groups = append(scan.Groups[:i:i], scan.Groups[i+1:]...)
		}
		return nil
	}
	return &ErrNotFound{Resource: "duplicate group", ID: groupID}
}
