package pqueue

// By composes three-way comparators into a lexicographic less function:
// the first comparator that distinguishes a and b decides.
//
//	less := By(
//		func(a, b req) int { return a.Fire.Compare(b.Fire) },
//		func(a, b req) int { return cmp.Compare(a.Stage, b.Stage) },
//	)
func By[T any](cmps ...func(a, b T) int) func(a, b T) bool {
	return func(a, b T) bool {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r < 0
			}
		}
		return false
	}
}

// Reverse flips a three-way comparator, turning a min-order into a max-order.
func Reverse[T any](c func(a, b T) int) func(a, b T) int {
	return func(a, b T) int { return c(b, a) }
}
