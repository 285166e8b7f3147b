package collectionutils

// Associate indexes items by the key transform returns for each of them.
// Later items win on duplicate keys.
func Associate[T any, K comparable, V any](items []T, transform func(T) (K, V)) map[K]V {
	m := make(map[K]V, len(items))
	for _, item := range items {
		k, v := transform(item)
		m[k] = v
	}
	return m
}

// GroupBy buckets items by key, keeping their relative order.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	m := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		m[k] = append(m[k], item)
	}
	return m
}

func GetOrDefault[K comparable, T any](m map[K]T, key K, fallback T) T {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}
