package progress

import "testing"

func lessonPhases(n int) []Phase {
	phases := make([]Phase, 0, n)
	for i := 1; i <= n; i++ {
		phases = append(phases, Phase{ID: phaseID(i), LessonID: "l1", PhaseNumber: i})
	}
	return phases
}

func phaseID(n int) string { return "phase-" + string(rune('0'+n)) }

func assertStates(t *testing.T, got []PhaseStatus, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d statuses, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].State != want[i] {
			t.Errorf("phase %d: got %s, want %s", i+1, got[i].State, want[i])
		}
	}
}

func TestPhaseStatusesNoProgress(t *testing.T) {
	got := PhaseStatuses(lessonPhases(4), map[string]Record{})
	assertStates(t, got, []string{StateAvailable, StateLocked, StateLocked, StateLocked})
}

func TestPhaseStatusesMidLesson(t *testing.T) {
	records := map[string]Record{
		phaseID(1): {PhaseID: phaseID(1), Status: StatusCompleted},
		phaseID(2): {PhaseID: phaseID(2), Status: StatusInProgress},
	}
	got := PhaseStatuses(lessonPhases(6), records)
	assertStates(t, got, []string{
		StateCompleted, StateCurrent, StateLocked, StateLocked, StateLocked, StateLocked,
	})
}

func TestPhaseStatusesUnlockAfterCompletion(t *testing.T) {
	records := map[string]Record{
		phaseID(1): {PhaseID: phaseID(1), Status: StatusCompleted},
	}
	got := PhaseStatuses(lessonPhases(3), records)
	assertStates(t, got, []string{StateCompleted, StateAvailable, StateLocked})
}

func TestPhaseStatusesNotStartedRecordStaysAvailable(t *testing.T) {
	// a not_started record exists but contributes nothing beyond the default
	records := map[string]Record{
		phaseID(1): {PhaseID: phaseID(1), Status: StatusNotStarted},
	}
	got := PhaseStatuses(lessonPhases(2), records)
	assertStates(t, got, []string{StateAvailable, StateLocked})
}
