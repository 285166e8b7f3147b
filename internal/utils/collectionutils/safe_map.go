package collectionutils

import "sync"

type SafeMap[K comparable, V any] struct {
	data   map[K]V
	mutext sync.RWMutex
}

func (safeMap *SafeMap[K, V]) Store(newKey K, newValue V) {
	safeMap.mutext.Lock()
	defer safeMap.mutext.Unlock()
	safeMap.data[newKey] = newValue
}

func (safeMap *SafeMap[K, V]) Get(key K) (V, bool) {
	safeMap.mutext.RLock()
	defer safeMap.mutext.RUnlock()
	value, exists := safeMap.data[key]

	return value, exists
}

// Update runs fn on the current value under the write lock and stores the
// result. The bool tells fn whether the key existed.
func (safeMap *SafeMap[K, V]) Update(key K, fn func(V, bool) V) V {
	safeMap.mutext.Lock()
	defer safeMap.mutext.Unlock()
	current, exists := safeMap.data[key]
	next := fn(current, exists)
	safeMap.data[key] = next
	return next
}

func (safeMap *SafeMap[K, V]) Delete(key K) {
	safeMap.mutext.Lock()
	defer safeMap.mutext.Unlock()
	delete(safeMap.data, key)
}

// DeleteIf removes every entry the predicate matches and returns how many went.
func (safeMap *SafeMap[K, V]) DeleteIf(match func(K, V) bool) int {
	safeMap.mutext.Lock()
	defer safeMap.mutext.Unlock()
	removed := 0
	for k, v := range safeMap.data {
		if match(k, v) {
			delete(safeMap.data, k)
			removed++
		}
	}
	return removed
}

func (safeMap *SafeMap[K, V]) Len() int {
	safeMap.mutext.RLock()
	defer safeMap.mutext.RUnlock()
	return len(safeMap.data)
}

func New[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		data: make(map[K]V),
	}
}
