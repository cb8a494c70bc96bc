package live

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Cache — хранилище документов, разбитое на области (scope).
// Область создаётся явно через Open и целиком удаляется через Invalidate;
// запись в несуществующую область игнорируется, поэтому запоздалые события
// от снятой регистрации кэш не засоряют.
type Cache[T Document] struct {
	scopes *xsync.Map[string, *scopeDocs[T]]
}

type scopeDocs[T Document] struct {
	mu   sync.RWMutex
	docs map[string]T
}

// NewCache создаёт пустой кэш.
func NewCache[T Document]() *Cache[T] {
	return &Cache[T]{scopes: xsync.NewMap[string, *scopeDocs[T]]()}
}

// Open создаёт область, если её нет.
func (c *Cache[T]) Open(scope string) {
	c.scopes.LoadOrCompute(scope, func() (*scopeDocs[T], bool) {
		return &scopeDocs[T]{docs: make(map[string]T)}, false
	})
}

// Invalidate удаляет область со всеми документами.
func (c *Cache[T]) Invalidate(scope string) {
	c.scopes.Delete(scope)
}

// Put добавляет или заменяет документ. Возвращает false, если области нет.
func (c *Cache[T]) Put(scope string, doc T) bool {
	s, ok := c.scopes.Load(scope)
	if !ok {
		return false
	}

	s.mu.Lock()
	s.docs[doc.DocID()] = doc
	s.mu.Unlock()

	return true
}

// Remove удаляет документ. Возвращает false, если области нет.
func (c *Cache[T]) Remove(scope, id string) bool {
	s, ok := c.scopes.Load(scope)
	if !ok {
		return false
	}

	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()

	return true
}

// Get возвращает документ области.
func (c *Cache[T]) Get(scope, id string) (T, bool) {
	var zero T

	s, ok := c.scopes.Load(scope)
	if !ok {
		return zero, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	return doc, ok
}

// Docs возвращает копию документов области, отсортированную createdAt DESC.
func (c *Cache[T]) Docs(scope string) []T {
	s, ok := c.scopes.Load(scope)
	if !ok {
		return nil
	}

	s.mu.RLock()
	out := make([]T, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	s.mu.RUnlock()

	SortByCreatedDesc(out)

	return out
}

// Scopes — число открытых областей.
func (c *Cache[T]) Scopes() int {
	return c.scopes.Size()
}

// SortByCreatedDesc сортирует по времени создания от новых к старым;
// при равенстве — по идентификатору DESC, чтобы порядок был детерминированным.
func SortByCreatedDesc[T Document](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].Created(), items[j].Created()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}

		return items[i].DocID() > items[j].DocID()
	})
}
