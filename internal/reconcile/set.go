// Package reconcile computes the work needed to converge Confluent Cloud and
// the secret store onto the declared state. Everything in here is pure:
// snapshots in, tasks out, no I/O.
package reconcile

import "sort"

// Set is a string set with the diff operations reconciliation is built on.
type Set map[string]struct{}

// NewSet builds a Set from the given members.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Add inserts a member.
func (s Set) Add(member string) {
	s[member] = struct{}{}
}

// Has reports membership.
func (s Set) Has(member string) bool {
	_, ok := s[member]
	return ok
}

// Diff returns the members of s absent from other. With s as the declared
// set this is the create list; with s as the observed set, the delete list.
func (s Set) Diff(other Set) Set {
	out := Set{}
	for m := range s {
		if !other.Has(m) {
			out.Add(m)
		}
	}
	return out
}

// Union returns the members of either set.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for m := range s {
		out.Add(m)
	}
	for m := range other {
		out.Add(m)
	}
	return out
}

// Sorted returns the members in lexical order, for deterministic task
// generation.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
