package transformer

// KeepFirst collapses items sharing a key, keeping the earliest occurrence
// and preserving input order.
func KeepFirst[T any, K comparable](in []T, key func(T) K) []T {
	if len(in) < 2 {
		return in
	}
	seen := make(map[K]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		k := key(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
