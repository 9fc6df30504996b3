package lease

import "testing"

// TestReleaserReverseOrder verifies release actions run in reverse
// registration order, exactly once.
func TestReleaserReverseOrder(t *testing.T) {
	var r Releaser
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		r.Add(func() { order = append(order, i) })
	}

	r.Release()
	r.Release() // idempotent

	if len(order) != 3 {
		t.Fatalf("Expected 3 release actions, got %d", len(order))
	}
	for i, got := range order {
		want := 2 - i
		if got != want {
			t.Errorf("Release order[%d]: expected %d, got %d", i, want, got)
		}
	}
	if !r.Released() {
		t.Error("Expected Released() to report true")
	}
}

// TestReleaserLateAddRunsImmediately verifies actions added after
// Release run right away instead of leaking.
func TestReleaserLateAddRunsImmediately(t *testing.T) {
	var r Releaser
	r.Release()

	ran := false
	r.Add(func() { ran = true })
	if !ran {
		t.Error("Expected late Add to run its action immediately")
	}
}

// TestReleaserNilAction verifies nil actions are ignored.
func TestReleaserNilAction(t *testing.T) {
	var r Releaser
	r.Add(nil)
	r.Release()
}
