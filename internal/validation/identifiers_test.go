package validation

import "testing"

func TestValidActionName_Valid(t *testing.T) {
	valids := []string{
		"a",
		"query",
		"query/read",
		"data/export.csv",
		"email/send_bulk",
	}
	for _, v := range valids {
		if !ValidActionName(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
}

func TestValidActionName_Invalid(t *testing.T) {
	invalids := []string{
		"",            // empty
		"/lead",       // starts with non-alnum
		"trail/",      // ends with non-alnum
		"bad space",   // space
		"UPPER",       // uppercase
		"semi;hack",   // semicolon
		mkLen("a", 129), // > 128
	}
	for _, v := range invalids {
		if ValidActionName(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidActionPattern(t *testing.T) {
	if !ValidActionPattern("*") {
		t.Fatal("expected wildcard to be valid")
	}
	if !ValidActionPattern("query/*") {
		t.Fatal("expected prefix wildcard to be valid")
	}
	if ValidActionPattern("/*") {
		t.Fatal("expected bare slash wildcard to be invalid")
	}
	if ValidActionPattern("query/**") {
		t.Fatal("expected double wildcard to be invalid")
	}
}

func TestValidID(t *testing.T) {
	if !ValidID("acme-corp") {
		t.Fatal("expected slug to be valid")
	}
	if !ValidID("0b9cbf40-91a1-4f3a-8e7a-0a2b7d3d9f1c") {
		t.Fatal("expected uuid to be valid")
	}
	if ValidID("Acme") || ValidID("") || ValidID("-lead") {
		t.Fatal("expected invalid ids to be rejected")
	}
}

// mkLen builds a string of exactly n characters starting with prefix.
func mkLen(prefix string, total int) string {
	if total <= len(prefix) {
		return prefix[:total]
	}
	out := make([]byte, total)
	copy(out, []byte(prefix))
	for i := len(prefix); i < total; i++ {
		out[i] = 'a'
	}
	return string(out)
}
