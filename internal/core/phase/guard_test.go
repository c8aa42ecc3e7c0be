package phase

import "testing"

func TestGuardPanicsOnlyWhileParallel(t *testing.T) {
	var g Guard
	g.MustBeExclusive("register") // fine

	g.EnterParallel()
	if !g.Parallel() {
		t.Fatal("Parallel() = false after EnterParallel")
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("MustBeExclusive did not panic in parallel mode")
			}
		}()
		g.MustBeExclusive("register")
	}()

	g.LeaveParallel()
	g.MustBeExclusive("register")
}
