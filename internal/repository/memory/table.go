package memory

// table keeps rows in insertion order so listings are deterministic.
type table[T any] struct {
	rows  map[string]T
	order []string
	copy  func(T) T
}

func newTable[T any](copyFn func(T) T) *table[T] {
	if copyFn == nil {
		copyFn = func(v T) T { return v }
	}
	return &table[T]{rows: make(map[string]T), copy: copyFn}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	if !ok {
		return v, false
	}
	return t.copy(v), true
}

func (t *table[T]) put(id string, v T) {
	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = t.copy(v)
}

func (t *table[T]) remove(id string) bool {
	if _, exists := t.rows[id]; !exists {
		return false
	}
	delete(t.rows, id)
	for i, key := range t.order {
		if key == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// all returns rows in insertion order, filtered by keep when non-nil.
func (t *table[T]) all(keep func(T) bool) []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		v := t.rows[id]
		if keep == nil || keep(v) {
			out = append(out, t.copy(v))
		}
	}
	return out
}

// newest returns rows newest first.
func (t *table[T]) newest(keep func(T) bool) []T {
	out := t.all(keep)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (t *table[T]) clone() *table[T] {
	cp := &table[T]{rows: make(map[string]T, len(t.rows)), order: append([]string(nil), t.order...), copy: t.copy}
	for k, v := range t.rows {
		cp.rows[k] = v
	}
	return cp
}
