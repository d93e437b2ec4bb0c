package service

import "testing"

// TestStampedeTracker verifies concurrent-miss counting and cleanup.
func TestStampedeTracker(t *testing.T) {
	st := newStampedeTracker()

	if got := st.RecordMiss("k"); got != 1 {
		t.Errorf("first RecordMiss() = %d, want 1", got)
	}
	if got := st.RecordMiss("k"); got != 2 {
		t.Errorf("second RecordMiss() = %d, want 2", got)
	}
	st.RecordHit("k")
	if got := st.RecordMiss("k"); got != 2 {
		t.Errorf("RecordMiss() after one hit = %d, want 2", got)
	}
	st.RecordHit("k")
	st.RecordHit("k")
	if got := st.RecordMiss("other"); got != 1 {
		t.Errorf("RecordMiss() on fresh key = %d, want 1", got)
	}
}

// TestStampedeTracker_HitWithoutMiss verifies that a stray RecordHit does not
// underflow the counter.
func TestStampedeTracker_HitWithoutMiss(t *testing.T) {
	st := newStampedeTracker()
	st.RecordHit("never-missed")
	if got := st.RecordMiss("never-missed"); got != 1 {
		t.Errorf("RecordMiss() = %d, want 1", got)
	}
}
