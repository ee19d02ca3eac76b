// Package topicfilter implements allow/deny-list topic filtering: plain
// exact-match set membership, not an expression language. Deliberately
// minimal — nothing in this tree needs a general filter DSL.
package topicfilter

// Filter selects topics by allow-list (empty means "all") with deny-list
// always taking precedence ("-k" always applies as deny, independent of
// how many times it's applied).
type Filter struct {
	Allow []string
	Deny  []string
}

// Accepts reports whether topic passes the filter.
func (f Filter) Accepts(topic string) bool {
	for _, d := range f.Deny {
		if d == topic {
			return false
		}
	}
	if len(f.Allow) == 0 {
		return true
	}
	for _, a := range f.Allow {
		if a == topic {
			return true
		}
	}
	return false
}
