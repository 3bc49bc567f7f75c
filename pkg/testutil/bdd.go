package testutil

import "testing"

// Given, When and Then run fn as a subtest named after the step. Steps nest, so
// a scenario reads top to bottom; once a step has failed its later siblings are
// not run and report false, the way t.Run does.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Then "+desc, fn)
}

func step(t *testing.T, name string, fn func(t *testing.T)) bool {
	t.Helper()
	if t.Failed() {
		t.Logf("not running %q after an earlier failure", name)
		return false
	}
	return t.Run(name, fn)
}
