package testutil

import "testing"

// Given, When and Then name nested subtests so a failing path reads as a
// scenario, e.g. "Given_a_window/When_the_learner_submits/Then_...".
func Given(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Given", desc, fn) }

func When(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "When", desc, fn) }

func Then(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Then", desc, fn) }

func step(t *testing.T, kind, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(kind+" "+desc, fn)
}
