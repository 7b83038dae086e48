package version

import "errors"

// ErrUnsatisfiedConstraint is returned when no version in a sorted,
// descending list satisfies a reference's operator/version pair.
var ErrUnsatisfiedConstraint = errors.New("no version satisfies constraint")

// Apply narrows a descending-sorted version list per spec §4.1 and returns
// the selected (highest remaining) version plus the pruned remainder.
//
// The returned slice is a new slice (the caller's input is never mutated in
// place) so selection can be threaded forward as an immutable snapshot per
// SPEC_FULL.md's Open Question (a) / spec.md §9's "in-place index pruning"
// redesign note.
func Apply(ref Reference, sorted []string) (selected string, remaining []string, err error) {
	if len(sorted) == 0 {
		return "", nil, ErrUnsatisfiedConstraint
	}

	switch ref.Op {
	case OpAny:
		return sorted[0], append([]string(nil), sorted...), nil

	case OpGreaterOrEqual, OpGreater:
		// Prune all versions strictly below (or at) V; select the highest
		// remaining.
		pruned := make([]string, 0, len(sorted))
		for _, v := range sorted {
			c := Compare(v, ref.Version)
			if ref.Op == OpGreaterOrEqual && c >= 0 {
				pruned = append(pruned, v)
			} else if ref.Op == OpGreater && c > 0 {
				pruned = append(pruned, v)
			}
		}
		if len(pruned) == 0 {
			return "", nil, ErrUnsatisfiedConstraint
		}
		return pruned[0], pruned, nil

	case OpLessOrEqual, OpLess:
		// Drop entries from the head until the remaining head satisfies the
		// bound; then select (the list is descending, so this walks from
		// the highest version downward until the bound is met).
		start := 0
		for start < len(sorted) {
			c := Compare(sorted[start], ref.Version)
			if (ref.Op == OpLessOrEqual && c <= 0) || (ref.Op == OpLess && c < 0) {
				break
			}
			start++
		}
		if start >= len(sorted) {
			return "", nil, ErrUnsatisfiedConstraint
		}
		pruned := append([]string(nil), sorted[start:]...)
		return pruned[0], pruned, nil

	case OpEqual:
		for _, v := range sorted {
			if Equal(v, ref.Version) {
				return v, []string{v}, nil
			}
		}
		return "", nil, ErrUnsatisfiedConstraint

	default:
		return "", nil, ErrUnsatisfiedConstraint
	}
}
