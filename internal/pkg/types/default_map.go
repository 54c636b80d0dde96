package types

// DefaultMap is a map wrapper that materializes missing entries on access
// using a caller-supplied default function, removing the need for existence
// checks at every call site.
//
// Example:
//
//	counts := NewDefaultMap[string](func() int { return 0 })
//	counts.Set("swap", counts.Get("swap")+1)
type DefaultMap[K comparable, V any] struct {
	data        map[K]V  // underlying key/value storage
	defaultFunc func() V // produces values for absent keys
}

// NewDefaultMap builds an empty DefaultMap using defaultFunc to initialize
// values for keys that have not been set yet.
func NewDefaultMap[K comparable, V any](defaultFunc func() V) DefaultMap[K, V] {
	return DefaultMap[K, V]{
		data:        make(map[K]V),
		defaultFunc: defaultFunc,
	}
}

// Get returns the value stored under key. When the key is absent, the default
// function runs once, its result is stored, and that value is returned.
func (d *DefaultMap[K, V]) Get(key K) V {
	val, ok := d.data[key]
	if ok {
		return val
	}

	val = d.defaultFunc()
	d.data[key] = val
	return val
}

// Set assigns val to key, replacing any existing entry.
func (d *DefaultMap[K, V]) Set(key K, val V) {
	d.data[key] = val
}

// ToMap exposes the underlying map. The returned map is the live storage, not
// a copy.
func (d *DefaultMap[K, V]) ToMap() map[K]V {
	return d.data
}
