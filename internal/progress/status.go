package progress

// PhaseStatuses derives each phase's state for one user from the ordered
// phase list and that user's records keyed by phase id. Pure; nothing here is
// cached or stored.
//
// A phase with a record is "completed" or "current" per the record's status.
// Without one it is "available" when it is the first phase of the lesson or
// its predecessor is completed, "locked" otherwise.
func PhaseStatuses(phases []Phase, records map[string]Record) []PhaseStatus {
	out := make([]PhaseStatus, 0, len(phases))
	for i, p := range phases {
		ps := PhaseStatus{PhaseID: p.ID, PhaseNumber: p.PhaseNumber, Title: p.Title}
		switch rec, ok := records[p.ID]; {
		case ok && rec.Status == StatusCompleted:
			ps.State = StateCompleted
		case ok && rec.Status == StatusInProgress:
			ps.State = StateCurrent
		default:
			if i == 0 || isCompleted(records, phases[i-1].ID) {
				ps.State = StateAvailable
			} else {
				ps.State = StateLocked
			}
		}
		out = append(out, ps)
	}
	return out
}

func isCompleted(records map[string]Record, phaseID string) bool {
	rec, ok := records[phaseID]
	return ok && rec.Status == StatusCompleted
}

// accessible reports whether phase i of the ordered list may be acted on:
// it already has a record, or it is unlocked per the sequential rule.
func accessible(phases []Phase, records map[string]Record, i int) bool {
	if _, ok := records[phases[i].ID]; ok {
		return true
	}
	return i == 0 || isCompleted(records, phases[i-1].ID)
}
