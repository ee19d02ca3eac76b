package topicfilter

import "testing"

func TestAcceptsAllowDenyPrecedence(t *testing.T) {
	f := Filter{Allow: []string{"/a", "/b"}, Deny: []string{"/b"}}
	if !f.Accepts("/a") {
		t.Fatal("expected /a to be accepted")
	}
	if f.Accepts("/b") {
		t.Fatal("expected /b to be denied despite being allow-listed")
	}
	if f.Accepts("/c") {
		t.Fatal("expected /c to be rejected: not in a non-empty allow-list")
	}
}

func TestAcceptsEmptyAllowListMeansAll(t *testing.T) {
	f := Filter{}
	if !f.Accepts("/anything") {
		t.Fatal("expected empty allow-list to accept every topic")
	}
}

func TestIdempotence(t *testing.T) {
	f := Filter{Allow: []string{"/a", "/b", "/c"}, Deny: []string{"/b"}}
	topics := []string{"/a", "/b", "/c", "/d"}

	first := filterAll(topics, f)
	second := filterAll(first, f)

	if len(first) != len(second) {
		t.Fatalf("filtering twice changed the result: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("filtering twice changed the result: %v vs %v", first, second)
		}
	}
}

func filterAll(topics []string, f Filter) []string {
	var out []string
	for _, t := range topics {
		if f.Accepts(t) {
			out = append(out, t)
		}
	}
	return out
}
