package kv3

import (
	"reflect"
	"strings"
	"sync"
)

// tagsCache maps struct types to the index of the field each property name
// binds to.
type tagsCache struct {
	mu   sync.RWMutex
	cmap map[reflect.Type]map[string]int
}

var structTags tagsCache

func (tc *tagsCache) Get(t reflect.Type) map[string]int {
	if t.Kind() != reflect.Struct {
		return nil
	}

	tc.mu.RLock()
	m, ok := tc.cmap[t]
	tc.mu.RUnlock()
	if ok {
		return m
	}

	m = make(map[string]int)

	l := t.NumField()
	for i := 0; i < l; i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("kv3"), ",")
		if name == "-" {
			continue
		}

		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		m[name] = i
	}

	// empty map -- may as well store a nil
	if len(m) == 0 {
		m = nil
	}

	tc.mu.Lock()
	if tc.cmap == nil {
		tc.cmap = make(map[reflect.Type]map[string]int)
	}
	tc.cmap[t] = m
	tc.mu.Unlock()

	return m
}
